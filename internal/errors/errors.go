// Package errors defines the error taxonomy shared by the component
// pipeline: discovery warnings, compile failures, render failures and route
// misses. Every failure is scoped to a single component or request; callers
// classify them with errors.Is / errors.As.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an error by the pipeline stage that produced it.
type Kind string

const (
	KindDiscovery Kind = "discovery"
	KindCompile   Kind = "compile"
	KindRender    Kind = "render"
	KindRoute     Kind = "route"
	KindConfig    Kind = "config"
	KindIO        Kind = "io"
)

// ErrRouteMiss is returned when a preview URL does not resolve to a
// component. It is a pass-through signal, never reported as a failure.
var ErrRouteMiss = &Error{Kind: KindRoute, Code: "ROUTE_MISS", Message: "no component matches route"}

// Error is a structured error with pipeline context.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Component string
	File      string
	Line      int
	Column    int
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.File != "" {
		location := e.File
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind and code so that wrapped instances compare equal to
// the sentinels in this package.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithComponent sets the component key (type/variation).
func (e *Error) WithComponent(component string) *Error {
	e.Component = component

	return e
}

// WithLocation adds file position information.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.File = file
	e.Line = line
	e.Column = column

	return e
}

// NewDiscoveryWarning reports a component directory that was skipped during
// a scan. It is recorded and logged but never aborts discovery.
func NewDiscoveryWarning(path, message string, cause error) *Error {
	return &Error{
		Kind:    KindDiscovery,
		Code:    "DISCOVERY_WARNING",
		Message: message,
		File:    path,
		Cause:   cause,
	}
}

// NewCompileFailure reports a stylesheet or template that failed to compile.
func NewCompileFailure(component, file string, cause error) *Error {
	return &Error{
		Kind:      KindCompile,
		Code:      "COMPILE_FAILURE",
		Message:   "compilation failed",
		Component: component,
		File:      file,
		Cause:     cause,
	}
}

// NewRenderFailure reports a template that failed while executing.
func NewRenderFailure(component string, cause error) *Error {
	return &Error{
		Kind:      KindRender,
		Code:      "RENDER_FAILURE",
		Message:   "render failed",
		Component: component,
		Cause:     cause,
	}
}

// NewConfigError reports an invalid configuration value.
func NewConfigError(message string, cause error) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    "CONFIG_INVALID",
		Message: message,
		Cause:   cause,
	}
}

// NewIOError wraps a filesystem failure.
func NewIOError(path string, cause error) *Error {
	return &Error{
		Kind:    KindIO,
		Code:    "IO_ERROR",
		Message: "filesystem operation failed",
		File:    path,
		Cause:   cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// IsCompileFailure reports whether err is a CompileFailure.
func IsCompileFailure(err error) bool {
	return KindOf(err) == KindCompile
}

// IsRenderFailure reports whether err is a RenderFailure.
func IsRenderFailure(err error) bool {
	return KindOf(err) == KindRender
}

// IsDiscoveryWarning reports whether err is a DiscoveryWarning.
func IsDiscoveryWarning(err error) bool {
	return KindOf(err) == KindDiscovery
}

// IsRouteMiss reports whether err signals a route miss.
func IsRouteMiss(err error) bool {
	return errors.Is(err, ErrRouteMiss)
}

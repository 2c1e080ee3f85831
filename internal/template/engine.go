// Package template implements the Handlebars-compatible template language
// used by component markup: escaped and raw output, comments, block helpers
// with {{else}} chains, partials, sub-expressions, hash arguments, data
// variables and "~" whitespace control.
package template

import (
	"fmt"
	"sort"
	"sync"
)

// RenderFunc renders a compiled template against data.
type RenderFunc func(data any) (string, error)

// Engine compiles templates against a helper registry and a set of named
// partials.
type Engine struct {
	registry *Registry

	mu       sync.RWMutex
	partials map[string][]node
}

// NewEngine creates an engine bound to reg. A nil registry is replaced by
// an empty one.
func NewEngine(reg *Registry) *Engine {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Engine{
		registry: reg,
		partials: make(map[string][]node),
	}
}

// Registry returns the helper registry the engine compiles against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// RegisterPartial compiles src and makes it available as {{> name}} to
// templates compiled afterwards.
func (e *Engine) RegisterPartial(name, src string) error {
	if name == "" {
		return fmt.Errorf("partial name must not be empty")
	}
	nodes, err := parse(src)
	if err != nil {
		return fmt.Errorf("partial %q: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.partials[name] = nodes
	return nil
}

// Partials returns the registered partial names in order.
func (e *Engine) Partials() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.partials))
	for name := range e.partials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile parses src. The returned template uses the helpers and partials
// registered at the time of the call.
func (e *Engine) Compile(src string) (*Template, error) {
	nodes, err := parse(src)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	partials := make(map[string][]node, len(e.partials))
	for name, p := range e.partials {
		partials[name] = p
	}
	e.mu.RUnlock()

	return &Template{
		nodes:    nodes,
		helpers:  e.registry.Snapshot(),
		partials: partials,
	}, nil
}

// Template is a compiled template. It is safe for concurrent use.
type Template struct {
	nodes    []node
	helpers  map[string]HelperFunc
	partials map[string][]node
}

// Render executes the template with data as the root context. Output is
// all or nothing: a failing render returns no partial markup.
func (t *Template) Render(data any) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("template panic: %v", r)
		}
	}()

	frame := NewFrame()
	frame.Set("root", data)
	st := &state{helpers: t.helpers, partials: t.partials}
	return st.renderString(t.nodes, &scope{value: data}, frame)
}

// Func returns Render as a RenderFunc.
func (t *Template) Func() RenderFunc {
	return t.Render
}

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	// Available lists the discovered component keys (type/variation)
	Available      []string
	ConfigPath     string
	ComponentsRoot string
}

// ComponentNotFoundError generates suggestions for a component key that did
// not resolve.
func ComponentNotFoundError(key string, ctx *SuggestionContext) []ErrorSuggestion {
	if ctx == nil {
		ctx = &SuggestionContext{}
	}
	root := ctx.ComponentsRoot
	if root == "" {
		root = "components"
	}

	suggestions := []ErrorSuggestion{
		{
			Title:       "Check the component directory exists",
			Description: "Components live at <root>/<type>/<variation> with a meta.json",
			Command:     "ls " + root,
			Example:     root + "/" + key + "/meta.json",
		},
	}

	if len(ctx.Available) > 0 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Available components",
			Description: strings.Join(ctx.Available, ", "),
		})

		needle := strings.ToLower(key)
		for _, candidate := range ctx.Available {
			c := strings.ToLower(candidate)
			if strings.Contains(c, needle) || strings.Contains(needle, c) || sameType(c, needle) {
				suggestions = append(suggestions, ErrorSuggestion{
					Title:       "Did you mean '" + candidate + "'?",
					Description: "Similar component found",
					Command:     "pagelume render " + candidate,
				})
				break
			}
		}
	}

	return suggestions
}

func sameType(a, b string) bool {
	ta, _, okA := strings.Cut(a, "/")
	tb, _, okB := strings.Cut(b, "/")
	return okA && okB && ta == tb
}

// CompileFailureSuggestions generates suggestions for a compile failure.
func CompileFailureSuggestions(err error) []ErrorSuggestion {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindCompile {
		return nil
	}

	var suggestions []ErrorSuggestion
	if e.Line > 0 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix the template syntax",
			Description: fmt.Sprintf("%s line %d, column %d", e.File, e.Line, e.Column),
			Example:     "{{#if title}}...{{/if}}",
		})
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "index.html"):
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Add a markup template",
			Description: "Every variation needs an index.html next to its meta.json",
		})
	case strings.Contains(msg, ".scss") || strings.Contains(msg, "import"):
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check stylesheet imports",
			Description: "Imports resolve against the stylesheet directory, the components root and the global assets tree",
			Example:     "components:\n  global_assets_dir: global-assets",
		})
	}

	return suggestions
}

// ServerStartError generates suggestions for server startup failures
func ServerStartError(err error, port int) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{}

	errStr := err.Error()

	if strings.Contains(errStr, "address already in use") || strings.Contains(errStr, "bind") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Port already in use",
			Description: fmt.Sprintf("Port %d is already being used by another process", port),
			Command:     fmt.Sprintf("lsof -i :%d", port),
		})

		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use a different port",
			Description: "Start the server on a different port",
			Command:     fmt.Sprintf("pagelume serve --port %d", port+1),
		})
	}

	if strings.Contains(errStr, "permission denied") && port < 1024 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use unprivileged port",
			Description: "Ports below 1024 require root privileges",
			Command:     "pagelume serve --port 3000",
		})
	}

	return suggestions
}

// ConfigurationError generates suggestions for configuration issues
func ConfigurationError(configError string, configPath string) []ErrorSuggestion {
	if configPath == "" {
		configPath = ".pagelume.yml"
	}
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify " + configPath + " exists and has valid syntax",
			Command:     "cat " + configPath,
		},
	}

	if strings.Contains(configError, "yaml") || strings.Contains(configError, "decoding") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(configError, "path") || strings.Contains(configError, "dir") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check directory paths",
			Description: "Paths must be relative to the project and must not contain '..'",
			Example:     "components:\n  dir: components",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}

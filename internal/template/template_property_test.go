//go:build property
// +build property

package template

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTemplateProperties tests invariant properties of template rendering
func TestTemplateProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	e := NewEngine(nil)

	escaped, err := e.Compile("{{v}}")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := e.Compile("{{{v}}}")
	if err != nil {
		t.Fatal(err)
	}

	properties.Property("escaped output never contains markup characters", prop.ForAll(
		func(s string) bool {
			out, err := escaped.Render(map[string]any{"v": s})
			return err == nil &&
				out == EscapeExpression(s) &&
				!strings.ContainsAny(out, "<>\"'`=")
		},
		gen.AnyString(),
	))

	properties.Property("raw output is the value itself", prop.ForAll(
		func(s string) bool {
			out, err := raw.Render(map[string]any{"v": s})
			return err == nil && out == s
		},
		gen.AnyString(),
	))

	properties.Property("text without delimiters renders verbatim", prop.ForAll(
		func(s string) bool {
			if strings.Contains(s, "{{") {
				return true
			}
			out, err := e.Compile(s)
			if err != nil {
				return false
			}
			rendered, err := out.Render(nil)
			return err == nil && rendered == s
		},
		gen.AnyString(),
	))

	properties.Property("each renders one item per element", prop.ForAll(
		func(items []string) bool {
			tmpl, err := e.Compile("{{#each items}}[{{@index}}]{{/each}}")
			if err != nil {
				return false
			}
			out, err := tmpl.Render(map[string]any{"items": items})
			return err == nil && strings.Count(out, "[") == len(items)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

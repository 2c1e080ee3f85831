//go:build property
// +build property

package renderer

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/pagelume/internal/types"
)

func defaultsComponent(title string, titleHasDefault bool, count int) *types.CompiledComponent {
	def := &types.ComponentDefinition{
		DisplayName: "Card",
		Type:        "card",
		Variation:   "basic",
		Fields: []types.Field{
			{Name: "title", Kind: types.KindText, Default: title, HasDefault: titleHasDefault},
			{Name: "count", Kind: types.KindNumber, Default: float64(count), HasDefault: true},
			{Name: "note", Kind: types.KindMultilineText, Default: nil, HasDefault: true},
			{Name: "body", Kind: types.KindMultilineText},
		},
	}
	return &types.CompiledComponent{
		Definition:     def,
		Location:       "/components/card/basic",
		TemplateSource: `{{title}}|{{count}}|{{#if note}}{{note}}{{else}}-{{/if}}|{{#if body}}{{body}}{{else}}-{{/if}}`,
	}
}

// TestRenderDefaultsProperties checks that empty data renders exactly like
// data holding every declared default, and that rendering is repeatable.
func TestRenderDefaultsProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	r := New()

	properties.Property("empty data equals explicit defaults", prop.ForAll(
		func(title string, hasDefault bool, count int) bool {
			c := defaultsComponent(title, hasDefault, count)
			empty, err := r.Render(c, types.RenderRequest{})
			if err != nil {
				return false
			}
			filled, err := r.Render(c, types.RenderRequest{Data: c.Definition.Defaults()})
			return err == nil && empty == filled
		},
		gen.AlphaString(),
		gen.Bool(),
		gen.IntRange(-1000, 1000),
	))

	properties.Property("rendering twice gives identical output", prop.ForAll(
		func(title string, hasDefault bool, count int, preview bool) bool {
			c := defaultsComponent(title, hasDefault, count)
			req := types.RenderRequest{Preview: preview}
			first, err := r.Render(c, req)
			if err != nil {
				return false
			}
			second, err := r.Render(c, req)
			return err == nil && first == second
		},
		gen.AlphaString(),
		gen.Bool(),
		gen.IntRange(-1000, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Package renderer turns a CompiledComponent and a RenderRequest into
// HTML.
//
// Rendering merges field defaults into the request data, compiles the
// component's template against the shared helper registry, executes it and
// optionally inlines the component's styles and script and wraps the result
// in the preview chrome. Template compilation happens on every call; nothing
// is cached across renders.
package renderer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/helpers"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/template"
	"github.com/conneroisu/pagelume/internal/types"
)

// Renderer renders compiled components.
type Renderer struct {
	engine     *template.Engine
	sanitizer  *bluemonday.Policy
	logger     logging.Logger
	helperOpts []helpers.Option
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer's logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithEngine renders with an existing engine instead of a fresh one. The
// engine's registry still receives the helper catalog.
func WithEngine(engine *template.Engine) Option {
	return func(r *Renderer) {
		r.engine = engine
	}
}

// WithHelperOptions configures the helper catalog, e.g. a fixed clock.
func WithHelperOptions(opts ...helpers.Option) Option {
	return func(r *Renderer) {
		r.helperOpts = append(r.helperOpts, opts...)
	}
}

// New creates a Renderer with its own helper registry populated with the
// helper catalog.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = template.NewEngine(template.NewRegistry())
	}
	helpers.Register(r.engine.Registry(), r.helperOpts...)
	r.logger = r.logger.WithComponent("renderer")
	return r
}

// Engine returns the template engine used for rendering.
func (r *Renderer) Engine() *template.Engine {
	return r.engine
}

// RegisterPartial makes src available as {{> name}} to later renders.
func (r *Renderer) RegisterPartial(name, src string) error {
	return r.engine.RegisterPartial(name, src)
}

// RegisterHelper adds or replaces a helper.
func (r *Renderer) RegisterHelper(name string, fn template.HelperFunc) {
	r.engine.Registry().Register(name, fn)
}

// Helpers lists every helper available to templates, built-ins included.
func (r *Renderer) Helpers() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, name := range append(template.Builtins(), r.engine.Registry().Names()...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Partials lists the registered partial names.
func (r *Renderer) Partials() []string {
	return r.engine.Partials()
}

// MergeDefaults returns data overlaid on the declared field defaults. Keys
// present in data always win, even when their value is null; fields with
// no default stay absent.
func MergeDefaults(def *types.ComponentDefinition, data map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(data))
	for k, v := range data {
		merged[k] = v
	}
	if def == nil {
		return merged
	}
	for name, value := range def.Defaults() {
		if _, present := merged[name]; !present {
			merged[name] = value
		}
	}
	return merged
}

// Render renders c according to req. A compile error yields a
// CompileFailure and an execution error a RenderFailure; neither returns
// partial markup.
func (r *Renderer) Render(c *types.CompiledComponent, req types.RenderRequest) (string, error) {
	key := c.Key()
	templateFile := filepath.Join(c.Location, "index.html")

	tmpl, err := r.engine.Compile(c.TemplateSource)
	if err != nil {
		failure := errors.NewCompileFailure(key, templateFile, err)
		if ce, ok := err.(*template.CompileError); ok {
			failure.WithLocation(templateFile, ce.Line, ce.Column)
		}
		r.logger.Warn(context.Background(), err, "template compilation failed", "component", key)
		return "", failure
	}

	html, err := tmpl.Render(MergeDefaults(c.Definition, req.Data))
	if err != nil {
		failure := errors.NewRenderFailure(key, err)
		if re, ok := err.(*template.RenderError); ok {
			failure.WithLocation(templateFile, re.Line, re.Column)
		}
		r.logger.Warn(context.Background(), err, "template execution failed", "component", key)
		return "", failure
	}

	if req.InlineStyles && c.CompiledStyles != "" {
		html = "<style>" + c.CompiledStyles + "</style>\n" + html
	}
	if req.InlineScripts && c.CompiledScript != "" {
		html = html + "\n<script>" + c.CompiledScript + "</script>"
	}
	if req.Preview {
		html = r.wrapInPreview(html, c.Definition)
	}
	return html, nil
}

const previewChrome = `<div class="%s"%s>
  <div class="pagelume-preview__info">
    <span class="pagelume-preview__type">%s</span>
    <span class="pagelume-preview__name">%s</span>
  </div>
  <div class="pagelume-preview__content">
    %s
  </div>
</div>`

func (r *Renderer) wrapInPreview(html string, def *types.ComponentDefinition) string {
	classes := []string{"pagelume-preview"}
	var style []string
	if hints := def.Preview; hints != nil {
		if hints.Responsive {
			classes = append(classes, "pagelume-preview--responsive")
		}
		if hints.Width > 0 {
			style = append(style, fmt.Sprintf("max-width: %dpx", hints.Width))
		}
		if hints.Height > 0 {
			style = append(style, fmt.Sprintf("min-height: %dpx", hints.Height))
		}
	}

	styleAttr := ""
	if len(style) > 0 {
		styleAttr = fmt.Sprintf(` style="%s"`, strings.Join(style, "; "))
	}

	return fmt.Sprintf(previewChrome,
		strings.Join(classes, " "),
		styleAttr,
		r.sanitizer.Sanitize(def.Type),
		r.sanitizer.Sanitize(def.DisplayName),
		html,
	)
}

// Item pairs a component with the data to render it with.
type Item struct {
	Component *types.CompiledComponent
	Data      map[string]interface{}
}

// RenderMany renders every item with the mode flags of req. Results keep
// the order of items; the first failure aborts the batch.
func (r *Renderer) RenderMany(items []Item, req types.RenderRequest) ([]string, error) {
	out := make([]string, len(items))
	for i, item := range items {
		itemReq := req
		itemReq.Data = item.Data
		html, err := r.Render(item.Component, itemReq)
		if err != nil {
			return nil, fmt.Errorf("rendering item %d (%s): %w", i, item.Component.Key(), err)
		}
		out[i] = html
	}
	return out, nil
}

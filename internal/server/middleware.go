package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/conneroisu/pagelume/internal/build"
	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/renderer"
	"github.com/conneroisu/pagelume/internal/scanner"
	"github.com/conneroisu/pagelume/internal/types"
)

const (
	componentsAPIPath = "/api/components"
	previewPrefix     = "/preview/"
)

// MiddlewareOptions configures a Middleware.
type MiddlewareOptions struct {
	// ComponentsRoot is the directory discovered on every request
	ComponentsRoot string
	// AssetsURL is the URL prefix the global assets tree is served under
	AssetsURL string
	HotReload bool
}

// Middleware serves the component API and preview documents and passes
// every other request on. Nothing is cached: each request discovers,
// builds and renders afresh.
type Middleware struct {
	opts     MiddlewareOptions
	scanner  *scanner.Scanner
	builder  *build.Builder
	renderer *renderer.Renderer
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	logger   logging.Logger
}

// NewMiddleware creates a Middleware.
func NewMiddleware(
	opts MiddlewareOptions,
	scan *scanner.Scanner,
	builder *build.Builder,
	rend *renderer.Renderer,
	logger logging.Logger,
) *Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.AssetsURL == "" {
		opts.AssetsURL = "/global-assets"
	}
	return &Middleware{
		opts:     opts,
		scanner:  scan,
		builder:  builder,
		renderer: rend,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
		logger:   logger.WithComponent("preview"),
	}
}

// ComponentSummary is one entry of the component API.
type ComponentSummary struct {
	Type      string                     `json:"type"`
	Variation string                     `json:"variation"`
	Meta      *types.ComponentDefinition `json:"meta"`
}

// ErrorBody is the JSON document returned for failed requests.
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Component string `json:"component,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
}

// Handler wraps next with the preview routes.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		switch {
		case r.URL.Path == componentsAPIPath:
			m.serveComponents(w, r)
		case strings.HasPrefix(r.URL.Path, previewPrefix):
			componentType, variation, ok := previewRoute(r.URL.Path)
			if !ok || !m.servePreview(w, r, componentType, variation) {
				next.ServeHTTP(w, r)
			}
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// previewRoute splits /preview/{type}/{variation}.
func previewRoute(path string) (componentType, variation string, ok bool) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, previewPrefix), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Components discovers the components beneath the root.
func (m *Middleware) Components(ctx context.Context) ([]ComponentSummary, []error, error) {
	result, err := m.scanner.Discover(ctx, m.opts.ComponentsRoot)
	if err != nil {
		return nil, nil, err
	}
	summaries := make([]ComponentSummary, 0, len(result.Locations))
	for _, loc := range result.Locations {
		summaries = append(summaries, ComponentSummary{
			Type:      loc.Type,
			Variation: loc.Variation,
			Meta:      loc.Definition,
		})
	}
	return summaries, result.Warnings, nil
}

func (m *Middleware) serveComponents(w http.ResponseWriter, r *http.Request) {
	summaries, _, err := m.Components(r.Context())
	if err != nil {
		m.logger.Error(r.Context(), err, "component discovery failed")
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// servePreview reports false when the route does not name a component, so
// the caller can pass the request on.
func (m *Middleware) servePreview(w http.ResponseWriter, r *http.Request, componentType, variation string) bool {
	ctx := r.Context()

	loc, err := m.scanner.Locate(ctx, m.opts.ComponentsRoot, componentType, variation)
	if errors.IsRouteMiss(err) {
		m.logger.Debug(ctx, "preview route miss", "type", componentType, "variation", variation)
		return false
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return true
	}

	data, err := previewData(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return true
	}

	component, err := m.builder.Build(ctx, loc)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return true
	}

	for _, violation := range component.Definition.ValidateData(data) {
		m.logger.Warn(ctx, violation, "preview data does not match field declaration", "component", component.Key())
	}

	body, err := m.renderer.Render(component, types.RenderRequest{Data: data, Preview: true})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return true
	}

	page := PreviewPage{
		Title:     component.Definition.DisplayName,
		Component: component.Key(),
		AssetsURL: m.opts.AssetsURL,
		Styles:    component.CompiledStyles,
		Vendors:   component.Definition.Vendors,
		Body:      body,
		Script:    component.CompiledScript,
		HotReload: m.opts.HotReload,
	}
	templ.Handler(PreviewDocument(page)).ServeHTTP(w, r)
	return true
}

// previewData decodes the optional ?data= JSON object.
func previewData(r *http.Request) (map[string]interface{}, error) {
	raw := r.URL.Query().Get("data")
	if raw == "" {
		return nil, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("invalid data parameter: %w", err)
	}
	return data, nil
}

// GalleryPage builds the index page model, rendering descriptions as
// sanitized Markdown.
func (m *Middleware) GalleryPage(ctx context.Context) (GalleryPage, error) {
	summaries, warnings, err := m.Components(ctx)
	if err != nil {
		return GalleryPage{}, err
	}

	page := GalleryPage{HotReload: m.opts.HotReload}
	for _, w := range warnings {
		page.Warnings = append(page.Warnings, w.Error())
	}
	for _, s := range summaries {
		description, err := m.markdownHTML(s.Meta.Description)
		if err != nil {
			m.logger.Warn(ctx, err, "description is not valid markdown", "component", s.Meta.Key())
		}
		page.Items = append(page.Items, GalleryItem{
			Key:         s.Meta.Key(),
			Name:        s.Meta.DisplayName,
			Type:        s.Type,
			Variation:   s.Variation,
			Description: description,
			Tags:        s.Meta.Tags,
			Vendors:     s.Meta.Vendors,
			Fields:      len(s.Meta.Fields),
		})
	}
	return page, nil
}

func (m *Middleware) markdownHTML(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := m.markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(m.policy.Sanitize(buf.String())), nil
}

// ServeGallery renders the index page.
func (m *Middleware) ServeGallery(w http.ResponseWriter, r *http.Request) {
	page, err := m.GalleryPage(r.Context())
	if err != nil {
		m.logger.Error(r.Context(), err, "gallery discovery failed")
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	templ.Handler(Gallery(page)).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	body := ErrorBody{Error: err.Error()}
	var e *errors.Error
	if stderrors.As(err, &e) {
		body.Kind = string(e.Kind)
		body.Component = e.Component
		body.File = e.File
		body.Line = e.Line
		body.Column = e.Column
	}
	writeJSON(w, status, body)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/pagelume/internal/build"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/renderer"
	"github.com/conneroisu/pagelume/internal/scanner"
)

const cardMeta = `{
  "name": "Card",
  "description": "A **simple** card <script>alert(1)</script>",
  "vendors": ["alpine"],
  "tags": ["layout"],
  "fields": [{"name": "title", "type": "text", "default": "Hello"}]
}`

type project struct {
	root       string
	components string
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	p := &project{root: root, components: filepath.Join(root, "components")}
	require.NoError(t, os.MkdirAll(p.components, 0o755))
	return p
}

func (p *project) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(p.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (p *project) card(t *testing.T) {
	t.Helper()
	p.write(t, "components/card/basic/meta.json", cardMeta)
	p.write(t, "components/card/basic/index.html", `<h2 class="card">{{title}}</h2>`)
	p.write(t, "components/card/basic/assets/js/script.js", "window.cardReady = true;")
}

func (p *project) middleware(hotReload bool) *Middleware {
	return p.middlewareWithLogger(hotReload, nil)
}

func (p *project) middlewareWithLogger(hotReload bool, logger logging.Logger) *Middleware {
	scan := scanner.New()
	builder := build.NewBuilder(build.Options{
		ComponentsRoot:  p.components,
		GlobalAssetsDir: filepath.Join(p.root, "global-assets"),
	}, scan, nil)
	return NewMiddleware(MiddlewareOptions{
		ComponentsRoot: p.components,
		HotReload:      hotReload,
	}, scan, builder, renderer.New(), logger)
}

func fallthroughHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

// find returns the first element for which match is true, depth first.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	if n.Type == html.ElementNode && match(n) {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findAll(c, match)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func tag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == name }
}

func TestComponentsAPI(t *testing.T) {
	p := newProject(t)
	p.card(t)
	p.write(t, "components/hero/dark/meta.json", `{"name": "Dark Hero", "fields": []}`)
	p.write(t, "components/hero/dark/index.html", `<section></section>`)
	p.write(t, "components/broken/one/meta.json", `{not json`)

	rec := serve(p.middleware(false).Handler(fallthroughHandler()), http.MethodGet, "/api/components")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []struct {
		Type      string `json:"type"`
		Variation string `json:"variation"`
		Meta      struct {
			Name string `json:"name"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	keys := make([]string, len(got))
	for i, c := range got {
		keys[i] = c.Type + "/" + c.Variation + ":" + c.Meta.Name
	}
	if diff := cmp.Diff([]string{"card/basic:Card", "hero/dark:Dark Hero"}, keys); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
}

func TestPreviewDocument(t *testing.T) {
	p := newProject(t)
	p.card(t)

	rec := serve(p.middleware(true).Handler(fallthroughHandler()), http.MethodGet, "/preview/card/basic")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	doc, err := html.Parse(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)

	title := find(doc, tag("title"))
	require.NotNil(t, title)
	assert.Equal(t, "Card - Pagelume Component Preview", text(title))

	link := find(doc, tag("link"))
	require.NotNil(t, link)
	assert.Equal(t, "/global-assets/css/pagelume-global.css", attr(link, "href"))

	heading := find(doc, func(n *html.Node) bool { return n.Data == "h2" && attr(n, "class") == "card" })
	require.NotNil(t, heading)
	assert.Equal(t, "Hello", text(heading))

	chrome := find(doc, func(n *html.Node) bool { return attr(n, "class") == "pagelume-preview" })
	require.NotNil(t, chrome, "preview chrome wraps the component")

	var srcs []string
	var inline []string
	for _, s := range findAll(doc, tag("script")) {
		if src := attr(s, "src"); src != "" {
			srcs = append(srcs, src)
		} else {
			inline = append(inline, text(s))
		}
	}
	assert.Equal(t, []string{"/global-assets/js/pagelume-core.js", "/global-assets/js/vendor-loader.js"}, srcs)
	require.Len(t, inline, 2)
	assert.Contains(t, inline[0], `Pagelume.loadVendors(["alpine"]).then(function () {`)
	assert.Contains(t, inline[0], "window.cardReady = true;")
	assert.Contains(t, inline[1], `var component = "card/basic";`)
	assert.Contains(t, inline[1], "/__pagelume/ws")

	assert.Contains(t, rec.Body.String(), "<!-- Vendor: alpine will be loaded by vendor-loader.js -->")
}

func TestPreviewDataOverridesDefaults(t *testing.T) {
	p := newProject(t)
	p.card(t)

	target := "/preview/card/basic?data=" + url.QueryEscape(`{"title": "Custom"}`)
	rec := serve(p.middleware(false).Handler(fallthroughHandler()), http.MethodGet, target)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<h2 class="card">Custom</h2>`)
	assert.NotContains(t, rec.Body.String(), "/__pagelume/ws")
}

func TestPreviewLogsFieldViolations(t *testing.T) {
	p := newProject(t)
	p.card(t)

	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelWarn, Format: "json", Output: &buf})
	h := p.middlewareWithLogger(false, logger).Handler(fallthroughHandler())

	rec := serve(h, http.MethodGet, "/preview/card/basic?data="+url.QueryEscape(`{"title": 42}`))
	require.Equal(t, http.StatusOK, rec.Code, "kind mismatches never block rendering")
	assert.Contains(t, rec.Body.String(), `<h2 class="card">42</h2>`)

	logged := buf.String()
	assert.Contains(t, logged, "preview data does not match field declaration")
	assert.Contains(t, logged, `field \"title\": expected string, got float64`)
	assert.Contains(t, logged, "card/basic")

	buf.Reset()
	rec = serve(h, http.MethodGet, "/preview/card/basic?data="+url.QueryEscape(`{"title": "Fine"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, buf.String())
}

func TestPreviewFallsThrough(t *testing.T) {
	p := newProject(t)
	p.card(t)
	h := p.middleware(false).Handler(fallthroughHandler())

	for _, target := range []string{
		"/preview/card/missing",
		"/preview/card",
		"/preview/card/basic/extra",
		"/preview/../card/basic",
		"/elsewhere",
	} {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, http.StatusTeapot, serve(h, http.MethodGet, target).Code)
		})
	}

	assert.Equal(t, http.StatusTeapot, serve(h, http.MethodPost, "/preview/card/basic").Code)
}

func TestPreviewFailures(t *testing.T) {
	p := newProject(t)
	p.card(t)
	p.write(t, "components/card/empty/meta.json", `{"name": "Empty", "fields": []}`)
	h := p.middleware(false).Handler(fallthroughHandler())

	rec := serve(h, http.MethodGet, "/preview/card/empty")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "compile", body.Kind)
	assert.Equal(t, "card/empty", body.Component)
	assert.Contains(t, body.Error, "index.html")

	rec = serve(h, http.MethodGet, "/preview/card/basic?data="+url.QueryEscape("{oops"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "invalid data parameter")
}

func TestGalleryPageSanitizesDescriptions(t *testing.T) {
	p := newProject(t)
	p.card(t)
	p.write(t, "components/broken/one/meta.json", `{not json`)

	page, err := p.middleware(false).GalleryPage(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	item := page.Items[0]
	assert.Equal(t, "card/basic", item.Key)
	assert.Equal(t, 1, item.Fields)
	assert.Contains(t, item.Description, "<strong>simple</strong>")
	assert.NotContains(t, item.Description, "<script")
	assert.Len(t, page.Warnings, 1)
}

func TestGalleryRendering(t *testing.T) {
	rec := httptest.NewRecorder()
	err := Gallery(GalleryPage{}).Render(context.Background(), rec)
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "No components found.")

	rec = httptest.NewRecorder()
	err = Gallery(GalleryPage{Items: []GalleryItem{{
		Key: "card/basic", Name: "<Card>", Type: "card", Variation: "basic", Fields: 2,
	}}}).Render(context.Background(), rec)
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	a := find(doc, func(n *html.Node) bool { return attr(n, "class") == "component-name" })
	require.NotNil(t, a)
	assert.Equal(t, "/preview/card/basic", attr(a, "href"))
	assert.Equal(t, "<Card>", text(a))
	assert.Contains(t, rec.Body.String(), "2 fields")
}

func TestCommentSafe(t *testing.T) {
	assert.Equal(t, "evil", commentSafe("--><evil"))
	assert.Equal(t, "alpine", commentSafe("alpine"))
}

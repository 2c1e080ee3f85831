package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/scanner"
	"github.com/conneroisu/pagelume/internal/types"
)

type fixture struct {
	root       string
	components string
	global     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:       root,
		components: filepath.Join(root, "components"),
		global:     filepath.Join(root, "global-assets"),
	}
	require.NoError(t, os.MkdirAll(f.components, 0o755))
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) component(t *testing.T, componentType, variation string) string {
	t.Helper()
	base := "components/" + componentType + "/" + variation
	f.write(t, base+"/meta.json", `{"name": "Demo", "fields": [{"name": "title", "type": "text", "default": "Hi"}]}`)
	f.write(t, base+"/index.html", `<h1>{{title}}</h1>`)
	return filepath.Join(f.components, componentType, variation)
}

func (f *fixture) builder(opts Options) *Builder {
	opts.ComponentsRoot = f.components
	if opts.GlobalAssetsDir == "" {
		opts.GlobalAssetsDir = f.global
	}
	return NewBuilder(opts, scanner.New(), nil)
}

func (f *fixture) locate(t *testing.T, componentType, variation string) scanner.Location {
	t.Helper()
	loc, err := scanner.New().Locate(context.Background(), f.components, componentType, variation)
	require.NoError(t, err)
	return loc
}

func TestBuildCompilesSCSSWithGlobalImports(t *testing.T) {
	f := newFixture(t)
	dir := f.component(t, "hero", "dark")
	f.write(t, "global-assets/scss/_variables.scss", `$brand: teal;`)
	f.write(t, "components/hero/dark/assets/scss/styles.scss", "@import \"variables\";\n.hero { color: $brand; }\n")
	f.write(t, "components/hero/dark/assets/js/script.js", "console.log('hi');\n")

	b := f.builder(Options{})
	compiled, err := b.Build(context.Background(), f.locate(t, "hero", "dark"))
	require.NoError(t, err)

	assert.Equal(t, ".hero {\n  color: teal;\n}\n", compiled.CompiledStyles)
	assert.Equal(t, "console.log('hi');\n", compiled.CompiledScript)
	assert.Equal(t, "<h1>{{title}}</h1>", compiled.TemplateSource)
	assert.Equal(t, "hero/dark", compiled.Key())
	assert.Equal(t, dir, compiled.Location)

	written, err := os.ReadFile(filepath.Join(dir, "assets", "css", "styles.css"))
	require.NoError(t, err)
	assert.Equal(t, compiled.CompiledStyles, string(written))
	assert.Contains(t, compiled.Assets.CSS, "css/styles.css")
}

func TestBuildWritesStylesOnlyWhenChanged(t *testing.T) {
	f := newFixture(t)
	f.component(t, "hero", "dark")
	f.write(t, "components/hero/dark/assets/scss/styles.scss", `.a { color: red; }`)

	b := f.builder(Options{})
	loc := f.locate(t, "hero", "dark")

	_, err := b.Build(context.Background(), loc)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), loc)
	require.NoError(t, err)

	snap := b.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalBuilds)
	assert.Equal(t, int64(1), snap.StylesWritten)

	f.write(t, "components/hero/dark/assets/scss/styles.scss", `.a { color: blue; }`)
	_, err = b.Build(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Metrics().Snapshot().StylesWritten)
}

func TestBuildPlainCSSFallback(t *testing.T) {
	f := newFixture(t)
	f.component(t, "card", "plain")
	f.write(t, "components/card/plain/assets/css/styles.css", ".card   {  color: red }")

	compiled, err := f.builder(Options{}).Build(context.Background(), f.locate(t, "card", "plain"))
	require.NoError(t, err)
	assert.Equal(t, ".card   {  color: red }", compiled.CompiledStyles)
}

func TestBuildWithoutStylesOrScript(t *testing.T) {
	f := newFixture(t)
	f.component(t, "card", "bare")

	compiled, err := f.builder(Options{}).Build(context.Background(), f.locate(t, "card", "bare"))
	require.NoError(t, err)
	assert.Empty(t, compiled.CompiledStyles)
	assert.Empty(t, compiled.CompiledScript)
	assert.Empty(t, cmp.Diff(types.AssetManifest{CSS: []string{}, JS: []string{}, Images: []string{}}, compiled.Assets))
}

func TestBuildMissingTemplateIsCompileFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "components/card/empty/meta.json", `{"fields": []}`)

	_, err := f.builder(Options{}).Build(context.Background(), f.locate(t, "card", "empty"))
	require.Error(t, err)
	assert.True(t, errors.IsCompileFailure(err))
	assert.Contains(t, err.Error(), "index.html")
}

func TestBuildSassImportWithoutGlobalAssets(t *testing.T) {
	f := newFixture(t)
	f.component(t, "hero", "dark")
	f.write(t, "components/hero/dark/assets/scss/_local.scss", `$x: 1px;`)
	f.write(t, "components/hero/dark/assets/scss/styles.scss", "@import \"local\";\n.a { width: $x; }\n")

	_, err := f.builder(Options{}).Build(context.Background(), f.locate(t, "hero", "dark"))
	require.Error(t, err)
	assert.True(t, errors.IsCompileFailure(err))
	assert.Contains(t, err.Error(), "global assets directory")
}

func TestBuildSCSSErrorCarriesLocation(t *testing.T) {
	f := newFixture(t)
	f.component(t, "hero", "dark")
	f.write(t, "components/hero/dark/assets/scss/styles.scss", ".a {\n  color: $missing;\n}\n")

	_, err := f.builder(Options{}).Build(context.Background(), f.locate(t, "hero", "dark"))
	require.Error(t, err)

	var failure *errors.Error
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, errors.KindCompile, failure.Kind)
	assert.Equal(t, 2, failure.Line)
}

func TestBuildMinify(t *testing.T) {
	f := newFixture(t)
	f.component(t, "hero", "dark")
	f.write(t, "components/hero/dark/assets/scss/styles.scss", `.a { color: red; b { margin: 0  auto; } }`)
	f.write(t, "components/hero/dark/assets/js/script.js", "function a() {\n  return 1;\n}\n")

	compiled, err := f.builder(Options{Minify: true}).Build(context.Background(), f.locate(t, "hero", "dark"))
	require.NoError(t, err)
	assert.Equal(t, ".a{color:red}.a b{margin:0 auto}", compiled.CompiledStyles)
	assert.Equal(t, "function a() { return 1; }", compiled.CompiledScript)
}

func TestBuildSourceMap(t *testing.T) {
	f := newFixture(t)
	dir := f.component(t, "hero", "dark")
	f.write(t, "global-assets/scss/_variables.scss", `$brand: teal;`)
	f.write(t, "components/hero/dark/assets/scss/styles.scss", "@import \"variables\";\n.hero { color: $brand; }\n")

	_, err := f.builder(Options{SourceMap: true}).Build(context.Background(), f.locate(t, "hero", "dark"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "assets", "css", "styles.css.map"))
	require.NoError(t, err)

	var m sourceMap
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 3, m.Version)
	assert.Equal(t, "styles.css", m.File)
	assert.Equal(t, []string{
		"../scss/styles.scss",
		"../../../../../global-assets/scss/_variables.scss",
	}, m.Sources)

	css, err := os.ReadFile(filepath.Join(dir, "assets", "css", "styles.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "sourceMappingURL=styles.css.map")
}

func TestCollectAssets(t *testing.T) {
	f := newFixture(t)
	dir := f.component(t, "hero", "dark")
	for _, rel := range []string{
		"assets/css/x.css",
		"assets/css/sub/y.css",
		"assets/js/a.js",
		"assets/img/logo.png",
		"assets/img/n/b.svg",
		"assets/img/readme.txt",
		"assets/scss/styles.scss",
	} {
		f.write(t, "components/hero/dark/"+rel, "x")
	}

	manifest, err := f.builder(Options{}).Assets().CollectAssets(dir)
	require.NoError(t, err)

	expected := types.AssetManifest{
		CSS:    []string{"css/sub/y.css", "css/x.css"},
		JS:     []string{"js/a.js"},
		Images: []string{"img/logo.png", "img/n/b.svg"},
	}
	if diff := cmp.Diff(expected, manifest); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAllIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.component(t, "hero", "dark")
	f.component(t, "hero", "light")
	f.write(t, "components/card/broken/meta.json", `{"fields": []}`)
	f.write(t, "components/card/corrupt/meta.json", `{`)

	b := f.builder(Options{})
	report, err := b.BuildAll(context.Background(), f.components)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "card/broken", report.Results[0].Key)
	assert.True(t, errors.IsCompileFailure(report.Results[0].Error))
	assert.NoError(t, report.Results[1].Error)
	assert.NoError(t, report.Results[2].Error)
	assert.Len(t, report.Failed(), 1)
	assert.Len(t, report.Warnings, 1)

	snap := b.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalBuilds)
	assert.Equal(t, int64(1), snap.FailedBuilds)
	assert.InDelta(t, 66.67, snap.SuccessRate(), 0.01)
}

func TestNormalizeCSS(t *testing.T) {
	src := "@media (max-width: 600px) {\n  .a {\n    color: red;\n  }\n}\n"
	out, err := normalizeCSS(src, false)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	out, err = normalizeCSS(src, true)
	require.NoError(t, err)
	assert.Equal(t, "@media (max-width: 600px){.a{color:red}}", out)

	out, err = normalizeCSS("", false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/scss"
	"github.com/conneroisu/pagelume/internal/types"
)

// Options configures asset compilation.
type Options struct {
	// ComponentsRoot is an import search root for stylesheets
	ComponentsRoot string
	// GlobalAssetsDir holds shared SCSS partials
	GlobalAssetsDir string
	Minify          bool
	SourceMap       bool
}

// manifestPatterns are matched against the component's assets directory.
var manifestPatterns = struct {
	css, js, images string
}{
	css:    "css/**/*.css",
	js:     "js/**/*.js",
	images: "img/**/*.{jpg,jpeg,png,gif,svg,webp}",
}

// sourceMap is the subset of the v3 source map format we emit.
type sourceMap struct {
	Version  int      `json:"version"`
	File     string   `json:"file"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

// AssetCompiler turns component stylesheets and scripts into servable
// text and enumerates auxiliary assets.
type AssetCompiler struct {
	opts    Options
	metrics *BuildMetrics
	logger  logging.Logger
}

// NewAssetCompiler creates an AssetCompiler.
func NewAssetCompiler(opts Options, metrics *BuildMetrics, logger logging.Logger) *AssetCompiler {
	if metrics == nil {
		metrics = NewBuildMetrics()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AssetCompiler{
		opts:    opts,
		metrics: metrics,
		logger:  logger.WithComponent("assets"),
	}
}

// loadPaths returns the stylesheet import roots after the file's own
// directory: the components root, then the global assets tree.
func (a *AssetCompiler) loadPaths() []string {
	var paths []string
	if a.opts.ComponentsRoot != "" {
		paths = append(paths, a.opts.ComponentsRoot)
	}
	if a.opts.GlobalAssetsDir != "" {
		paths = append(paths, a.opts.GlobalAssetsDir, filepath.Join(a.opts.GlobalAssetsDir, "scss"))
	}
	return paths
}

// CompileStyles produces the component stylesheet. SCSS sources win over a
// plain stylesheet; a component with neither has no styles.
func (a *AssetCompiler) CompileStyles(ctx context.Context, key string, snap *Snapshot) (string, error) {
	switch {
	case snap.HasSCSS:
		return a.compileSCSS(ctx, key, snap)
	case snap.HasCSS:
		return string(snap.CSS), nil
	default:
		return "", nil
	}
}

func (a *AssetCompiler) compileSCSS(ctx context.Context, key string, snap *Snapshot) (string, error) {
	src := string(snap.SCSS)

	if a.opts.GlobalAssetsDir != "" && scss.HasSassImports(src) && !isDir(a.opts.GlobalAssetsDir) {
		return "", errors.NewCompileFailure(key, snap.SCSSPath,
			fmt.Errorf("stylesheet imports Sass sources but global assets directory %s does not exist", a.opts.GlobalAssetsDir))
	}

	result, err := scss.New(a.loadPaths()...).CompileString(src, snap.SCSSPath)
	if err != nil {
		failure := errors.NewCompileFailure(key, snap.SCSSPath, err)
		if scssErr, ok := err.(*scss.Error); ok {
			failure.WithLocation(scssErr.File, scssErr.Line, 0)
		}
		return "", failure
	}

	compiled, err := normalizeCSS(result.CSS, a.opts.Minify)
	if err != nil {
		return "", errors.NewCompileFailure(key, snap.SCSSPath, fmt.Errorf("normalising compiled CSS: %w", err))
	}

	a.writeStyles(ctx, key, snap.Dir, compiled, result.Sources)
	return compiled, nil
}

// writeStyles stores the compiled stylesheet next to the component. It only
// writes when the content differs so that a file watcher on the component
// tree does not see its own output as a change.
func (a *AssetCompiler) writeStyles(ctx context.Context, key, dir, compiled string, sources []string) {
	cssDir := filepath.Join(dir, "assets", "css")
	target := filepath.Join(cssDir, "styles.css")

	content := compiled
	if a.opts.SourceMap {
		content = strings.TrimRight(compiled, "\n") + "\n/*# sourceMappingURL=styles.css.map */\n"
	}

	changed, err := writeIfChanged(target, []byte(content))
	if err != nil {
		a.logger.Warn(ctx, err, "could not write compiled stylesheet", "component", key, "path", target)
		return
	}
	if changed {
		a.metrics.recordStylesWritten()
		a.logger.Debug(ctx, "compiled stylesheet written", "component", key, "path", target)
	}

	if !a.opts.SourceMap {
		return
	}

	m := sourceMap{Version: 3, File: "styles.css", Sources: []string{}, Names: []string{}}
	for _, src := range sources {
		rel, err := filepath.Rel(cssDir, src)
		if err != nil {
			rel = src
		}
		m.Sources = append(m.Sources, filepath.ToSlash(rel))
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		a.logger.Warn(ctx, err, "could not encode source map", "component", key)
		return
	}
	if _, err := writeIfChanged(target+".map", data); err != nil {
		a.logger.Warn(ctx, err, "could not write source map", "component", key)
	}
}

// CompileScript returns the component script, collapsed when minifying.
func (a *AssetCompiler) CompileScript(snap *Snapshot) string {
	if !snap.HasScript {
		return ""
	}
	if a.opts.Minify {
		return minifyScript(string(snap.Script))
	}
	return string(snap.Script)
}

// CollectAssets lists the files under dir/assets, relative to it. A
// component without an assets directory has an empty manifest.
func (a *AssetCompiler) CollectAssets(dir string) (types.AssetManifest, error) {
	manifest := types.AssetManifest{CSS: []string{}, JS: []string{}, Images: []string{}}

	root := filepath.Join(dir, "assets")
	if !isDir(root) {
		return manifest, nil
	}

	fsys := os.DirFS(root)
	globs := []struct {
		pattern string
		into    *[]string
	}{
		{manifestPatterns.css, &manifest.CSS},
		{manifestPatterns.js, &manifest.JS},
		{manifestPatterns.images, &manifest.Images},
	}
	for _, g := range globs {
		matches, err := doublestar.Glob(fsys, g.pattern, doublestar.WithFilesOnly())
		if err != nil {
			return manifest, errors.NewIOError(root, err)
		}
		sort.Strings(matches)
		*g.into = append(*g.into, matches...)
	}
	return manifest, nil
}

func writeIfChanged(path string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

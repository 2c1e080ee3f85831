// Package scss compiles the subset of SCSS used by component stylesheets
// into plain CSS.
//
// Supported: variables (with !default and !global), #{} interpolation,
// nested rules with & parent references, @import of partials, @mixin and
// @include (arguments, defaults and @content), @media bubbling, simple
// unit arithmetic, and pass-through of plain CSS at-rules such as
// @keyframes and @font-face. Control flow, @extend, @use and functions
// are rejected with an error.
package scss

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error is a compilation error with its source position.
type Error struct {
	File    string
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// Result is the output of one compilation.
type Result struct {
	// CSS is the expanded stylesheet
	CSS string
	// Sources lists every file read, entry file first
	Sources []string
}

// Compiler resolves imports against a fixed list of load paths.
type Compiler struct {
	loadPaths []string
}

// New creates a Compiler. Imports are resolved relative to the importing
// file first, then against each load path in order.
func New(loadPaths ...string) *Compiler {
	paths := make([]string, 0, len(loadPaths))
	for _, p := range loadPaths {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return &Compiler{loadPaths: paths}
}

// LoadPaths returns the configured import search roots.
func (c *Compiler) LoadPaths() []string {
	return append([]string(nil), c.loadPaths...)
}

// CompileFile compiles the stylesheet at path.
func (c *Compiler) CompileFile(path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return c.compile(string(src), abs)
}

// CompileString compiles src as if it were the file at path. The file is
// never read; path only anchors relative imports and error positions.
func (c *Compiler) CompileString(src, path string) (*Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return c.compile(src, abs)
}

func (c *Compiler) compile(src, file string) (*Result, error) {
	stmts, err := parse(src, file)
	if err != nil {
		return nil, err
	}

	comp := newCompilation(c)
	comp.markSource(file)
	comp.importing[file] = true

	ctx := &evalContext{
		scope: comp.global,
		out:   &comp.root,
		file:  file,
		dir:   filepath.Dir(file),
	}
	if err := comp.eval(stmts, ctx); err != nil {
		return nil, err
	}

	return &Result{
		CSS:     comp.render(),
		Sources: comp.sources,
	}, nil
}

// resolveImport finds the file an @import of name refers to.
func (c *Compiler) resolveImport(name, fromDir string) (string, bool) {
	dirs := append([]string{fromDir}, c.loadPaths...)
	if filepath.IsAbs(name) {
		dirs = []string{""}
	}

	for _, dir := range dirs {
		base := filepath.Join(dir, filepath.FromSlash(name))
		var candidates []string
		if strings.HasSuffix(base, ".scss") {
			candidates = []string{base, partialName(base)}
		} else {
			candidates = []string{
				base + ".scss",
				partialName(base + ".scss"),
				filepath.Join(base, "_index.scss"),
				filepath.Join(base, "index.scss"),
			}
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				if abs, err := filepath.Abs(candidate); err == nil {
					return abs, true
				}
				return candidate, true
			}
		}
	}
	return "", false
}

func partialName(path string) string {
	return filepath.Join(filepath.Dir(path), "_"+filepath.Base(path))
}

// HasSassImports reports whether src contains an @import that would be
// resolved as a Sass source rather than passed through as plain CSS.
func HasSassImports(src string) bool {
	stmts, err := parse(src, "")
	if err != nil {
		return false
	}
	return hasSassImports(stmts)
}

func hasSassImports(stmts []*stmt) bool {
	for _, s := range stmts {
		if s.kind == stmtAt && s.name == "import" {
			for _, item := range splitTopLevel(s.value, ',') {
				if !isPlainCSSImport(strings.TrimSpace(item)) {
					return true
				}
			}
		}
		if hasSassImports(s.body) {
			return true
		}
	}
	return false
}

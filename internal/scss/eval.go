package scss

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// unsupported lists directives outside the supported subset.
var unsupported = map[string]bool{
	"extend": true, "use": true, "forward": true, "function": true, "return": true,
	"if": true, "else": true, "each": true, "for": true, "while": true, "at-root": true,
}

// ruleBlockAtRules hold nested rules rather than declarations.
var ruleBlockAtRules = map[string]bool{
	"keyframes": true, "-webkit-keyframes": true, "-moz-keyframes": true,
	"document": true, "font-feature-values": true,
}

type scope struct {
	vars   map[string]string
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]string), parent: parent}
}

func (s *scope) get(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return "", false
}

func (s *scope) root() *scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

type param struct {
	name   string
	def    string
	hasDef bool
}

type mixin struct {
	params []param
	body   []*stmt
	file   string
	dir    string
}

type contentBlock struct {
	body  []*stmt
	scope *scope
	file  string
	dir   string
}

type evalContext struct {
	scope     *scope
	selectors []string
	decls     *[]decl
	out       *[]node
	media     string
	file      string
	dir       string
	content   *contentBlock
}

func (ctx *evalContext) child() *evalContext {
	c := *ctx
	c.scope = newScope(ctx.scope)
	return &c
}

type compilation struct {
	compiler   *Compiler
	global     *scope
	mixins     map[string]*mixin
	root       []node
	cssImports []string
	sources    []string
	seen       map[string]bool
	importing  map[string]bool
}

func newCompilation(c *Compiler) *compilation {
	return &compilation{
		compiler:  c,
		global:    newScope(nil),
		mixins:    make(map[string]*mixin),
		seen:      make(map[string]bool),
		importing: make(map[string]bool),
	}
}

func (c *compilation) markSource(path string) {
	if !c.seen[path] {
		c.seen[path] = true
		c.sources = append(c.sources, path)
	}
}

func errorAt(ctx *evalContext, s *stmt, format string, args ...interface{}) error {
	return &Error{File: ctx.file, Line: s.line, Message: fmt.Sprintf(format, args...)}
}

func (c *compilation) eval(stmts []*stmt, ctx *evalContext) error {
	for _, s := range stmts {
		var err error
		switch s.kind {
		case stmtVar:
			err = c.evalVar(s, ctx)
		case stmtDecl:
			err = c.evalDecl(s, ctx)
		case stmtRule:
			err = c.evalRule(s, ctx)
		case stmtAt:
			err = c.evalAt(s, ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *compilation) value(s *stmt, ctx *evalContext, raw string) (string, error) {
	v, err := evalValue(raw, ctx.scope)
	if err != nil {
		return "", errorAt(ctx, s, "%v", err)
	}
	return v, nil
}

func (c *compilation) evalVar(s *stmt, ctx *evalContext) error {
	if s.isDefault {
		if existing, ok := ctx.scope.get(s.name); ok && existing != "null" {
			return nil
		}
	}
	v, err := c.value(s, ctx, s.value)
	if err != nil {
		return err
	}
	target := ctx.scope
	if s.isGlobal {
		target = ctx.scope.root()
	}
	target.vars[s.name] = v
	return nil
}

func (c *compilation) evalDecl(s *stmt, ctx *evalContext) error {
	if ctx.decls == nil {
		return errorAt(ctx, s, "declaration %q must be inside a rule", s.name)
	}
	prop, err := interpolate(s.name, ctx.scope)
	if err != nil {
		return errorAt(ctx, s, "%v", err)
	}
	v, err := c.value(s, ctx, s.value)
	if err != nil {
		return err
	}
	if v == "" {
		return nil
	}
	*ctx.decls = append(*ctx.decls, decl{prop: prop, value: v})
	return nil
}

func (c *compilation) evalRule(s *stmt, ctx *evalContext) error {
	raw, err := interpolate(s.value, ctx.scope)
	if err != nil {
		return errorAt(ctx, s, "%v", err)
	}
	rule := &ruleNode{selectors: resolveSelectors(ctx.selectors, raw)}
	*ctx.out = append(*ctx.out, rule)

	inner := ctx.child()
	inner.selectors = rule.selectors
	inner.decls = &rule.decls
	return c.eval(s.body, inner)
}

func (c *compilation) evalAt(s *stmt, ctx *evalContext) error {
	if unsupported[s.name] {
		return errorAt(ctx, s, "@%s is not supported", s.name)
	}

	switch s.name {
	case "import":
		return c.evalImport(s, ctx)
	case "mixin":
		return c.defineMixin(s, ctx)
	case "include":
		return c.evalInclude(s, ctx)
	case "content":
		if ctx.content == nil {
			return nil
		}
		inner := ctx.child()
		inner.scope = newScope(ctx.content.scope)
		inner.file, inner.dir = ctx.content.file, ctx.content.dir
		inner.content = nil
		return c.eval(ctx.content.body, inner)
	case "error":
		msg, err := c.value(s, ctx, s.value)
		if err != nil {
			return err
		}
		return errorAt(ctx, s, "%s", unquote(msg))
	case "warn", "debug":
		return nil
	case "media", "supports":
		return c.evalConditional(s, ctx)
	}

	params, err := c.value(s, ctx, s.value)
	if err != nil {
		return err
	}
	at := &atNode{name: s.name, params: params, block: s.hasBody}
	*ctx.out = append(*ctx.out, at)
	if !s.hasBody {
		return nil
	}

	inner := ctx.child()
	inner.selectors = nil
	inner.media = ""
	inner.out = &at.children
	if ruleBlockAtRules[s.name] {
		inner.decls = nil
	} else {
		inner.decls = &at.decls
	}
	return c.eval(s.body, inner)
}

// evalConditional handles @media and @supports, bubbling them out of the
// enclosing rule and merging nested media queries.
func (c *compilation) evalConditional(s *stmt, ctx *evalContext) error {
	params, err := c.value(s, ctx, s.value)
	if err != nil {
		return err
	}
	params = whitespace.ReplaceAllString(params, " ")

	target := ctx.out
	media := ctx.media
	if s.name == "media" {
		if ctx.media != "" {
			params = ctx.media + " and " + params
			target = &c.root
		}
		media = params
	}

	at := &atNode{name: s.name, params: params, block: true}
	*target = append(*target, at)

	inner := ctx.child()
	inner.media = media
	inner.out = &at.children
	inner.decls = nil
	if len(ctx.selectors) > 0 {
		rule := &ruleNode{selectors: ctx.selectors}
		at.children = append(at.children, rule)
		inner.decls = &rule.decls
	}
	return c.eval(s.body, inner)
}

func (c *compilation) evalImport(s *stmt, ctx *evalContext) error {
	for _, item := range splitTopLevel(s.value, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if isPlainCSSImport(item) {
			c.cssImports = append(c.cssImports, item)
			continue
		}

		name := unquote(item)
		path, ok := c.compiler.resolveImport(name, ctx.dir)
		if !ok {
			return errorAt(ctx, s, "cannot resolve import %q", name)
		}
		if c.importing[path] {
			return errorAt(ctx, s, "import cycle through %s", path)
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return errorAt(ctx, s, "reading import %q: %v", name, err)
		}
		stmts, err := parse(string(src), path)
		if err != nil {
			return err
		}

		c.markSource(path)
		c.importing[path] = true
		inner := *ctx
		inner.file = path
		inner.dir = filepath.Dir(path)
		err = c.eval(stmts, &inner)
		delete(c.importing, path)
		if err != nil {
			return err
		}
	}
	return nil
}

// isPlainCSSImport reports whether an @import target is left for the
// browser: .css files, remote URLs, url() and media-qualified imports.
func isPlainCSSImport(item string) bool {
	lower := strings.ToLower(item)
	if item == "" || strings.HasPrefix(lower, "url(") {
		return true
	}
	name := item
	if item[0] == '"' || item[0] == '\'' {
		if end := strings.IndexByte(item[1:], item[0]); end >= 0 {
			name = item[1 : end+1]
			// Anything after the closing quote is a media query.
			if strings.TrimSpace(item[end+2:]) != "" {
				return true
			}
		}
	}
	lowerName := strings.ToLower(name)
	return strings.HasSuffix(lowerName, ".css") ||
		strings.HasPrefix(lowerName, "http://") ||
		strings.HasPrefix(lowerName, "https://") ||
		strings.HasPrefix(lowerName, "//")
}

func (c *compilation) defineMixin(s *stmt, ctx *evalContext) error {
	if !s.hasBody {
		return errorAt(ctx, s, "@mixin requires a body")
	}
	name, args := splitCall(s.value)
	if name == "" {
		return errorAt(ctx, s, "@mixin requires a name")
	}

	m := &mixin{body: s.body, file: ctx.file, dir: ctx.dir}
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if !strings.HasPrefix(arg, "$") {
			return errorAt(ctx, s, "mixin parameter %q must be a variable", arg)
		}
		p := param{name: normalizeVar(strings.TrimSpace(arg[1:]))}
		if colon := strings.IndexByte(arg, ':'); colon >= 0 {
			p.name = normalizeVar(strings.TrimSpace(arg[1:colon]))
			p.def = strings.TrimSpace(arg[colon+1:])
			p.hasDef = true
		}
		m.params = append(m.params, p)
	}
	c.mixins[normalizeVar(name)] = m
	return nil
}

func (c *compilation) evalInclude(s *stmt, ctx *evalContext) error {
	name, args := splitCall(s.value)
	m, ok := c.mixins[normalizeVar(name)]
	if !ok {
		return errorAt(ctx, s, "undefined mixin %q", name)
	}

	bound := newScope(c.global)
	positional := 0
	named := make(map[string]string)
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if strings.HasPrefix(arg, "$") {
			if colon := indexTopLevel(arg, ':'); colon > 0 {
				v, err := c.value(s, ctx, arg[colon+1:])
				if err != nil {
					return err
				}
				named[normalizeVar(strings.TrimSpace(arg[1:colon]))] = v
				continue
			}
		}
		if positional >= len(m.params) {
			return errorAt(ctx, s, "mixin %q takes %d arguments", name, len(m.params))
		}
		v, err := c.value(s, ctx, arg)
		if err != nil {
			return err
		}
		bound.vars[m.params[positional].name] = v
		positional++
	}

	for _, p := range m.params {
		if _, ok := bound.vars[p.name]; ok {
			continue
		}
		if v, ok := named[p.name]; ok {
			bound.vars[p.name] = v
			continue
		}
		if !p.hasDef {
			return errorAt(ctx, s, "missing argument $%s for mixin %q", p.name, name)
		}
		v, err := evalValue(p.def, bound)
		if err != nil {
			return errorAt(ctx, s, "%v", err)
		}
		bound.vars[p.name] = v
	}

	inner := *ctx
	inner.scope = bound
	inner.file, inner.dir = m.file, m.dir
	inner.content = nil
	if s.hasBody {
		inner.content = &contentBlock{body: s.body, scope: ctx.scope, file: ctx.file, dir: ctx.dir}
	}
	return c.eval(m.body, &inner)
}

// splitCall splits "name(a, b)" into its name and arguments.
func splitCall(s string) (string, []string) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil
	}
	name := strings.TrimSpace(s[:open])
	inner := strings.TrimSpace(s[open+1:])
	inner = strings.TrimSuffix(inner, ")")
	if strings.TrimSpace(inner) == "" {
		return name, nil
	}
	return name, splitTopLevel(inner, ',')
}

// resolveSelectors combines parent and child selector lists, replacing &
// with the parent or joining with a descendant combinator.
func resolveSelectors(parents []string, raw string) []string {
	var children []string
	for _, part := range splitTopLevel(raw, ',') {
		part = strings.TrimSpace(whitespace.ReplaceAllString(part, " "))
		if part != "" {
			children = append(children, part)
		}
	}
	if len(parents) == 0 {
		return children
	}

	resolved := make([]string, 0, len(parents)*len(children))
	for _, parent := range parents {
		for _, child := range children {
			if strings.Contains(child, "&") {
				resolved = append(resolved, strings.ReplaceAll(child, "&", parent))
			} else {
				resolved = append(resolved, parent+" "+child)
			}
		}
	}
	return resolved
}

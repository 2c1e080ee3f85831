package scss

import "strings"

type decl struct {
	prop  string
	value string
}

type node interface {
	render(depth int) string
}

type ruleNode struct {
	selectors []string
	decls     []decl
}

type atNode struct {
	name     string
	params   string
	decls    []decl
	children []node
	block    bool
}

func (r *ruleNode) render(depth int) string {
	if len(r.decls) == 0 || len(r.selectors) == 0 {
		return ""
	}
	pad := strings.Repeat("  ", depth)

	var b strings.Builder
	b.WriteString(pad + strings.Join(r.selectors, ", ") + " {\n")
	writeDecls(&b, pad+"  ", r.decls)
	b.WriteString(pad + "}")
	return b.String()
}

func (a *atNode) render(depth int) string {
	pad := strings.Repeat("  ", depth)
	head := "@" + a.name
	if a.params != "" {
		head += " " + a.params
	}
	if !a.block {
		return pad + head + ";"
	}

	children := renderNodes(a.children, depth+1)
	if len(a.decls) == 0 && len(children) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(pad + head + " {\n")
	writeDecls(&b, pad+"  ", a.decls)
	for _, child := range children {
		b.WriteString(child + "\n")
	}
	b.WriteString(pad + "}")
	return b.String()
}

func writeDecls(b *strings.Builder, pad string, decls []decl) {
	for _, d := range decls {
		b.WriteString(pad + d.prop + ": " + d.value + ";\n")
	}
}

func renderNodes(nodes []node, depth int) []string {
	var blocks []string
	for _, n := range nodes {
		if s := n.render(depth); s != "" {
			blocks = append(blocks, s)
		}
	}
	return blocks
}

func (c *compilation) render() string {
	var blocks []string
	for _, imp := range c.cssImports {
		blocks = append(blocks, "@import "+imp+";")
	}
	blocks = append(blocks, renderNodes(c.root, 0)...)
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

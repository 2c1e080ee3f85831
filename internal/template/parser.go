package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type node interface{}

type textNode struct {
	text string
}

type mustacheNode struct {
	expr *expr
	raw  bool
	line int
	col  int
}

type blockNode struct {
	expr     *expr
	inverted bool
	program  []node
	inverse  []node
	line     int
	col      int
}

type partialNode struct {
	expr *expr
	line int
	col  int
}

// expr is a helper call or a lone value: head followed by positional
// params and key=value hash pairs.
type expr struct {
	head   operand
	params []operand
	hash   []hashPair
}

type hashPair struct {
	key   string
	value operand
}

type operand interface{}

type literal struct {
	value any
}

type subExpr struct {
	expr *expr
}

type pathExpr struct {
	original string
	data     bool
	depth    int
	this     bool
	parts    []string
}

// helperName reports the name under which op may resolve to a helper.
func helperName(op operand) (string, bool) {
	p, ok := op.(*pathExpr)
	if !ok || p.data || p.this || p.depth > 0 || len(p.parts) != 1 {
		return "", false
	}
	return p.parts[0], true
}

func operandString(op operand) string {
	switch o := op.(type) {
	case *pathExpr:
		return o.original
	case literal:
		return ToString(o.value)
	case subExpr:
		return "(" + operandString(o.expr.head) + " ...)"
	}
	return ""
}

type termKind int

const (
	termEOF termKind = iota
	termElse
	termClose
)

type terminator struct {
	kind  termKind
	tok   token
	name  string
	chain *expr
}

type parser struct {
	toks []token
	pos  int
}

// parse compiles template source into a node tree.
func parse(src string) ([]node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	nodes, term, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	switch term.kind {
	case termElse:
		return nil, tokenError(term.tok, "unexpected {{else}} outside a block")
	case termClose:
		return nil, tokenError(term.tok, "unexpected closing tag {{/%s}}", term.name)
	}
	return nodes, nil
}

func tokenError(tok token, format string, args ...any) error {
	return &CompileError{Line: tok.line, Column: tok.col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseProgram() ([]node, terminator, error) {
	var nodes []node
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		p.pos++

		switch tok.kind {
		case tokText:
			if tok.value != "" {
				nodes = append(nodes, &textNode{text: tok.value})
			}
			continue
		case tokComment:
			continue
		}

		if tok.raw {
			e, err := parseTokenExpr(tok, tok.value)
			if err != nil {
				return nil, terminator{}, err
			}
			nodes = append(nodes, &mustacheNode{expr: e, raw: true, line: tok.line, col: tok.col})
			continue
		}

		v := tok.value
		switch {
		case strings.HasPrefix(v, "#"):
			block, err := p.openBlock(tok, strings.TrimSpace(v[1:]), false)
			if err != nil {
				return nil, terminator{}, err
			}
			nodes = append(nodes, block)

		case v == "^":
			return nodes, terminator{kind: termElse, tok: tok}, nil

		case strings.HasPrefix(v, "^"):
			block, err := p.openBlock(tok, strings.TrimSpace(v[1:]), true)
			if err != nil {
				return nil, terminator{}, err
			}
			nodes = append(nodes, block)

		case strings.HasPrefix(v, "/"):
			return nodes, terminator{kind: termClose, tok: tok, name: strings.TrimSpace(v[1:])}, nil

		case v == "else":
			return nodes, terminator{kind: termElse, tok: tok}, nil

		case strings.HasPrefix(v, "else ") || strings.HasPrefix(v, "else\t") || strings.HasPrefix(v, "else\n"):
			chain, err := parseTokenExpr(tok, strings.TrimSpace(v[4:]))
			if err != nil {
				return nil, terminator{}, err
			}
			return nodes, terminator{kind: termElse, tok: tok, chain: chain}, nil

		case strings.HasPrefix(v, ">"):
			e, err := parseTokenExpr(tok, strings.TrimSpace(v[1:]))
			if err != nil {
				return nil, terminator{}, err
			}
			if len(e.params) > 1 {
				return nil, terminator{}, tokenError(tok, "partial accepts at most one context argument")
			}
			nodes = append(nodes, &partialNode{expr: e, line: tok.line, col: tok.col})

		case strings.HasPrefix(v, "&"):
			e, err := parseTokenExpr(tok, strings.TrimSpace(v[1:]))
			if err != nil {
				return nil, terminator{}, err
			}
			nodes = append(nodes, &mustacheNode{expr: e, raw: true, line: tok.line, col: tok.col})

		default:
			e, err := parseTokenExpr(tok, v)
			if err != nil {
				return nil, terminator{}, err
			}
			nodes = append(nodes, &mustacheNode{expr: e, line: tok.line, col: tok.col})
		}
	}
	return nodes, terminator{kind: termEOF}, nil
}

func (p *parser) openBlock(tok token, body string, inverted bool) (*blockNode, error) {
	if strings.HasPrefix(body, ">") || strings.HasPrefix(body, "*") {
		return nil, tokenError(tok, "partial blocks and decorators are not supported")
	}
	e, err := parseTokenExpr(tok, body)
	if err != nil {
		return nil, err
	}
	head, ok := e.head.(*pathExpr)
	if !ok {
		return nil, tokenError(tok, "block name must be a path, got %q", operandString(e.head))
	}
	return p.parseBlock(tok, e, inverted, head.original)
}

// parseBlock reads the body of a block up to its closing tag. An
// "{{else if ...}}" chain becomes a nested block in the inverse that shares
// the outer closing tag.
func (p *parser) parseBlock(tok token, e *expr, inverted bool, openName string) (*blockNode, error) {
	block := &blockNode{expr: e, inverted: inverted, line: tok.line, col: tok.col}

	program, term, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	block.program = program
	if block.program == nil {
		block.program = []node{}
	}

	seenElse := false
	for {
		switch term.kind {
		case termEOF:
			return nil, tokenError(tok, "unclosed block {{#%s}}", openName)

		case termClose:
			if term.name != openName {
				return nil, tokenError(term.tok, "{{/%s}} does not match {{#%s}}", term.name, openName)
			}
			return block, nil

		case termElse:
			if seenElse {
				return nil, tokenError(term.tok, "multiple {{else}} sections in {{#%s}}", openName)
			}
			seenElse = true
			if term.chain != nil {
				chained, err := p.parseBlock(term.tok, term.chain, false, openName)
				if err != nil {
					return nil, err
				}
				block.inverse = []node{chained}
				return block, nil
			}
			inverse, next, err := p.parseProgram()
			if err != nil {
				return nil, err
			}
			block.inverse = inverse
			if block.inverse == nil {
				block.inverse = []node{}
			}
			term = next
		}
	}
}

func parseTokenExpr(tok token, src string) (*expr, error) {
	e, err := parseExpression(src)
	if err != nil {
		return nil, tokenError(tok, "%s", err.Error())
	}
	return e, nil
}

type etokKind int

const (
	eWord etokKind = iota
	eString
	eOpen
	eClose
	eEquals
)

type etok struct {
	kind etokKind
	text string
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func scanExpr(s string) ([]etok, error) {
	var out []etok
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == '(':
			out = append(out, etok{kind: eOpen, text: "("})
			i++
		case c == ')':
			out = append(out, etok{kind: eClose, text: ")"})
			i++
		case c == '=':
			out = append(out, etok{kind: eEquals, text: "="})
			i++
		case c == '"' || c == '\'':
			var b strings.Builder
			j := i + 1
			closed := false
			for j < len(s) {
				if s[j] == '\\' && j+1 < len(s) {
					b.WriteByte(s[j+1])
					j += 2
					continue
				}
				if s[j] == c {
					closed = true
					j++
					break
				}
				b.WriteByte(s[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal")
			}
			out = append(out, etok{kind: eString, text: b.String()})
			i = j
		default:
			j := i
			for j < len(s) {
				ch := s[j]
				if ch == '[' {
					k := strings.IndexByte(s[j:], ']')
					if k < 0 {
						return nil, fmt.Errorf("unclosed [ in %q", s[i:])
					}
					j += k + 1
					continue
				}
				if isSpace(ch) || ch == '(' || ch == ')' || ch == '=' {
					break
				}
				j++
			}
			out = append(out, etok{kind: eWord, text: s[i:j]})
			i = j
		}
	}
	return out, nil
}

type exprParser struct {
	toks []etok
	pos  int
}

func parseExpression(src string) (*expr, error) {
	toks, err := scanExpr(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	p := &exprParser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		return nil, fmt.Errorf("unexpected %q", p.toks[p.pos].text)
	}
	return e, nil
}

func (p *exprParser) expr() (*expr, error) {
	head, err := p.operand()
	if err != nil {
		return nil, err
	}
	e := &expr{head: head}
	for p.pos < len(p.toks) && p.toks[p.pos].kind != eClose {
		if p.hashStart() {
			key := p.toks[p.pos].text
			p.pos += 2
			value, err := p.operand()
			if err != nil {
				return nil, err
			}
			e.hash = append(e.hash, hashPair{key: key, value: value})
			continue
		}
		if len(e.hash) > 0 {
			return nil, fmt.Errorf("positional argument after hash argument")
		}
		param, err := p.operand()
		if err != nil {
			return nil, err
		}
		e.params = append(e.params, param)
	}
	return e, nil
}

func (p *exprParser) hashStart() bool {
	return p.pos+1 < len(p.toks) &&
		p.toks[p.pos].kind == eWord &&
		p.toks[p.pos+1].kind == eEquals
}

func (p *exprParser) operand() (operand, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("expected expression")
	}
	t := p.toks[p.pos]
	p.pos++

	switch t.kind {
	case eString:
		return literal{value: t.text}, nil
	case eOpen:
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos].kind != eClose {
			return nil, fmt.Errorf("unclosed sub-expression")
		}
		p.pos++
		return subExpr{expr: e}, nil
	case eWord:
		return wordOperand(t.text)
	}
	return nil, fmt.Errorf("unexpected %q", t.text)
}

var numberPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

func wordOperand(word string) (operand, error) {
	switch word {
	case "true":
		return literal{value: true}, nil
	case "false":
		return literal{value: false}, nil
	case "null", "undefined":
		return literal{value: nil}, nil
	}
	if numberPattern.MatchString(word) {
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return nil, err
		}
		return literal{value: f}, nil
	}
	return parsePath(word)
}

func parsePath(s string) (*pathExpr, error) {
	p := &pathExpr{original: s}
	rest := s
	if strings.HasPrefix(rest, "@") {
		p.data = true
		rest = rest[1:]
	}
	for strings.HasPrefix(rest, "../") {
		p.depth++
		rest = rest[3:]
	}
	switch {
	case rest == "..":
		p.depth++
		p.this = true
		return p, nil
	case rest == "this" || rest == ".":
		p.this = true
		return p, nil
	case rest == "" && p.depth > 0:
		p.this = true
		return p, nil
	case strings.HasPrefix(rest, "this.") || strings.HasPrefix(rest, "this/"):
		p.this = true
		rest = rest[5:]
	case strings.HasPrefix(rest, "./"):
		p.this = true
		rest = rest[2:]
	}

	parts, err := splitSegments(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", s, err)
	}
	p.parts = parts
	return p, nil
}

func splitSegments(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed [")
			}
			cur.WriteString(s[i+1 : i+end])
			i += end
		case '.', '/':
			if cur.Len() == 0 {
				return nil, fmt.Errorf("empty segment")
			}
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() == 0 {
		return nil, fmt.Errorf("empty segment")
	}
	return append(parts, cur.String()), nil
}

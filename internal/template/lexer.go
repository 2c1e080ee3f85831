package template

import (
	"fmt"
	"sort"
	"strings"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokMustache
	tokComment
)

type token struct {
	kind       tokenKind
	value      string
	raw        bool
	stripLeft  bool
	stripRight bool
	line       int
	col        int
}

// CompileError reports malformed template source.
type CompileError struct {
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

type lexer struct {
	src        string
	lineStarts []int
}

func newLexer(src string) *lexer {
	lx := &lexer{src: src, lineStarts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			lx.lineStarts = append(lx.lineStarts, i+1)
		}
	}
	return lx
}

func (lx *lexer) position(offset int) (int, int) {
	line := sort.Search(len(lx.lineStarts), func(i int) bool {
		return lx.lineStarts[i] > offset
	})
	return line, offset - lx.lineStarts[line-1] + 1
}

func (lx *lexer) errorf(offset int, format string, args ...any) error {
	line, col := lx.position(offset)
	return &CompileError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

// lex splits src into text, mustache and comment tokens and applies "~"
// whitespace control to the neighbouring text.
func lex(src string) ([]token, error) {
	lx := newLexer(src)
	var (
		toks []token
		text strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			toks = append(toks, token{kind: tokText, value: text.String()})
			text.Reset()
		}
	}

	i := 0
	for i < len(src) {
		j := strings.Index(src[i:], "{{")
		if j < 0 {
			text.WriteString(src[i:])
			break
		}
		j += i

		if j > 0 && src[j-1] == '\\' {
			text.WriteString(src[i : j-1])
			text.WriteString("{{")
			i = j + 2
			continue
		}

		text.WriteString(src[i:j])
		flush()

		tok, next, err := lx.mustache(j)
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		i = next
	}
	flush()

	applyWhitespaceControl(toks)
	return toks, nil
}

func (lx *lexer) mustache(start int) (token, int, error) {
	src := lx.src
	tok := token{kind: tokMustache}
	tok.line, tok.col = lx.position(start)

	p := start + 2
	if p < len(src) && src[p] == '~' {
		tok.stripLeft = true
		p++
	}

	switch {
	case strings.HasPrefix(src[p:], "!--"):
		tok.kind = tokComment
		for k := p + 3; ; {
			idx := strings.Index(src[k:], "--")
			if idx < 0 {
				return tok, 0, lx.errorf(start, "unclosed comment")
			}
			k += idx + 2
			if strings.HasPrefix(src[k:], "}}") {
				tok.value = src[p+3 : k-2]
				return tok, k + 2, nil
			}
			if strings.HasPrefix(src[k:], "~}}") {
				tok.value = src[p+3 : k-2]
				tok.stripRight = true
				return tok, k + 3, nil
			}
			k--
		}

	case strings.HasPrefix(src[p:], "!"):
		tok.kind = tokComment
		idx := strings.Index(src[p:], "}}")
		if idx < 0 {
			return tok, 0, lx.errorf(start, "unclosed comment")
		}
		body := src[p+1 : p+idx]
		if strings.HasSuffix(body, "~") {
			tok.stripRight = true
			body = body[:len(body)-1]
		}
		tok.value = body
		return tok, p + idx + 2, nil

	case strings.HasPrefix(src[p:], "{"):
		tok.raw = true
		p++
	}

	end, next, strip, ok := lx.closeIndex(p, tok.raw)
	if !ok {
		return tok, 0, lx.errorf(start, "unclosed expression")
	}
	tok.stripRight = strip
	tok.value = strings.TrimSpace(src[p:end])
	if tok.value == "" {
		return tok, 0, lx.errorf(start, "empty expression")
	}
	return tok, next, nil
}

// closeIndex finds the end of a mustache body starting at p, skipping
// quoted strings. It returns the body end, the offset after the closing
// delimiter and whether the delimiter carried "~".
func (lx *lexer) closeIndex(p int, triple bool) (int, int, bool, bool) {
	src := lx.src
	var quote byte
	for i := p; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		rest := src[i:]
		if triple {
			switch {
			case strings.HasPrefix(rest, "}}}"):
				return i, i + 3, false, true
			case strings.HasPrefix(rest, "}~}}"):
				return i, i + 4, true, true
			}
			continue
		}
		switch {
		case strings.HasPrefix(rest, "~}}"):
			return i, i + 3, true, true
		case strings.HasPrefix(rest, "}}"):
			return i, i + 2, false, true
		}
	}
	return 0, 0, false, false
}

func applyWhitespaceControl(toks []token) {
	for i, tok := range toks {
		if tok.kind == tokText {
			continue
		}
		if tok.stripLeft && i > 0 && toks[i-1].kind == tokText {
			toks[i-1].value = strings.TrimRight(toks[i-1].value, " \t\r\n")
		}
		if tok.stripRight && i+1 < len(toks) && toks[i+1].kind == tokText {
			toks[i+1].value = strings.TrimLeft(toks[i+1].value, " \t\r\n")
		}
	}
}

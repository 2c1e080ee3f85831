package scss

import (
	"fmt"
	"strings"
)

type stmtKind int

const (
	stmtDecl stmtKind = iota
	stmtVar
	stmtRule
	stmtAt
)

// stmt is one parsed statement. For declarations name is the property and
// value the raw value; for variables name is the variable; for rules value
// is the selector; for at-rules name excludes the @ and value holds the
// params.
type stmt struct {
	kind      stmtKind
	line      int
	name      string
	value     string
	isDefault bool
	isGlobal  bool
	hasBody   bool
	body      []*stmt
}

type parser struct {
	src  string
	file string
	pos  int
	line int
}

func parse(src, file string) ([]*stmt, error) {
	p := &parser{src: stripComments(src), file: file, line: 1}
	return p.block(false)
}

func (p *parser) errorf(line int, format string, args ...interface{}) error {
	return &Error{File: p.file, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) block(nested bool) ([]*stmt, error) {
	var out []*stmt
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			if nested {
				return nil, p.errorf(p.line, "unexpected end of input, expected }")
			}
			return out, nil
		}

		switch p.src[p.pos] {
		case '}':
			if !nested {
				return nil, p.errorf(p.line, "unexpected }")
			}
			p.pos++
			return out, nil
		case ';':
			p.pos++
			continue
		}

		line := p.line
		text, term, err := p.readStatement()
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)

		if term == '{' {
			p.pos++
			body, err := p.block(true)
			if err != nil {
				return nil, err
			}
			s := p.header(text, line)
			s.hasBody = true
			s.body = body
			out = append(out, s)
			continue
		}

		if term == ';' {
			p.pos++
		}
		if text == "" {
			continue
		}
		s, err := p.statement(text, line)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

// readStatement consumes text up to the next '{', ';' or '}' that is not
// inside a string, parentheses or an interpolation. The terminator is not
// consumed; 0 means end of input.
func (p *parser) readStatement() (string, byte, error) {
	start := p.pos
	startLine := p.line
	var quote byte
	parens, interp := 0, 0

	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if ch == '\n' {
			p.line++
		}

		if quote != 0 {
			if ch == '\\' && p.pos+1 < len(p.src) {
				p.pos += 2
				continue
			}
			if ch == quote {
				quote = 0
			}
			p.pos++
			continue
		}

		switch {
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '#' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			interp++
			p.pos++
		case ch == '}' && interp > 0:
			interp--
		case ch == '(':
			parens++
		case ch == ')' && parens > 0:
			parens--
		case ch == '{' && parens == 0:
			return p.src[start:p.pos], '{', nil
		case ch == ';' && parens == 0:
			return p.src[start:p.pos], ';', nil
		case ch == '}':
			return p.src[start:p.pos], '}', nil
		}
		p.pos++
	}

	if quote != 0 {
		return "", 0, p.errorf(startLine, "unterminated string")
	}
	return p.src[start:p.pos], 0, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\n':
			p.line++
		case ' ', '\t', '\r', '\f':
		default:
			return
		}
		p.pos++
	}
}

// header classifies the text before a '{'.
func (p *parser) header(text string, line int) *stmt {
	if strings.HasPrefix(text, "@") {
		name, params := splitAtRule(text)
		return &stmt{kind: stmtAt, line: line, name: name, value: params}
	}
	return &stmt{kind: stmtRule, line: line, value: text}
}

// statement classifies a ';'-terminated statement.
func (p *parser) statement(text string, line int) (*stmt, error) {
	if strings.HasPrefix(text, "@") {
		name, params := splitAtRule(text)
		return &stmt{kind: stmtAt, line: line, name: name, value: params}, nil
	}

	colon := indexTopLevel(text, ':')
	if colon < 0 {
		return nil, p.errorf(line, "expected declaration, got %q", text)
	}
	name := strings.TrimSpace(text[:colon])
	value := strings.TrimSpace(text[colon+1:])
	if name == "" {
		return nil, p.errorf(line, "missing property name")
	}

	if strings.HasPrefix(name, "$") {
		s := &stmt{kind: stmtVar, line: line, name: normalizeVar(name[1:])}
		for {
			switch {
			case strings.HasSuffix(value, "!default"):
				s.isDefault = true
				value = strings.TrimSpace(strings.TrimSuffix(value, "!default"))
				continue
			case strings.HasSuffix(value, "!global"):
				s.isGlobal = true
				value = strings.TrimSpace(strings.TrimSuffix(value, "!global"))
				continue
			}
			break
		}
		s.value = value
		return s, nil
	}

	return &stmt{kind: stmtDecl, line: line, name: name, value: value}, nil
}

func splitAtRule(text string) (string, string) {
	i := 1
	for i < len(text) && (isIdentChar(text[i])) {
		i++
	}
	return text[1:i], strings.TrimSpace(text[i:])
}

func isIdentChar(ch byte) bool {
	return ch == '-' || ch == '_' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// normalizeVar folds the Sass equivalence of '_' and '-' in names.
func normalizeVar(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// stripComments removes // and /* */ comments outside strings and url()
// while keeping line breaks, so positions stay accurate.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	for i := 0; i < len(src); {
		ch := src[i]

		if ch == '"' || ch == '\'' {
			j := i + 1
			for j < len(src) && src[j] != ch {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(src) {
				j++
			}
			if j > len(src) {
				j = len(src)
			}
			b.WriteString(src[i:j])
			i = j
			continue
		}

		if i+4 <= len(src) && strings.EqualFold(src[i:i+4], "url(") {
			end := strings.IndexByte(src[i:], ')')
			if end < 0 {
				b.WriteString(src[i:])
				break
			}
			b.WriteString(src[i : i+end+1])
			i += end + 1
			continue
		}

		if ch == '/' && i+1 < len(src) {
			switch src[i+1] {
			case '/':
				end := strings.IndexByte(src[i:], '\n')
				if end < 0 {
					i = len(src)
				} else {
					i += end
				}
				continue
			case '*':
				end := strings.Index(src[i+2:], "*/")
				var comment string
				if end < 0 {
					comment = src[i:]
					i = len(src)
				} else {
					comment = src[i : i+2+end+2]
					i += 2 + end + 2
				}
				b.WriteString(strings.Repeat("\n", strings.Count(comment, "\n")))
				b.WriteByte(' ')
				continue
			}
		}

		b.WriteByte(ch)
		i++
	}
	return b.String()
}

// splitTopLevel splits s on sep outside strings and parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var quote byte
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case (ch == ')' || ch == ']' || ch == '}') && depth > 0:
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// indexTopLevel returns the index of the first sep outside strings,
// parentheses and interpolations, or -1.
func indexTopLevel(s string, sep byte) int {
	parts := splitTopLevel(s, sep)
	if len(parts) < 2 {
		return -1
	}
	return len(parts[0])
}

package scss

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d+)?|\.\d+))([a-zA-Z%]*)$`)

// evalValue resolves interpolation, variables and arithmetic in raw.
func evalValue(raw string, sc *scope) (string, error) {
	s, err := interpolate(raw, sc)
	if err != nil {
		return "", err
	}
	s, err = substituteVars(s, sc)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(arithmetic(s)), nil
}

// interpolate replaces every #{expr} with the unquoted value of expr.
func interpolate(s string, sc *scope) (string, error) {
	if !strings.Contains(s, "#{") {
		return s, nil
	}

	var b strings.Builder
	for {
		start := strings.Index(s, "#{")
		if start < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		depth, end := 0, -1
		for i := start + 2; i < len(s); i++ {
			if s[i] == '{' {
				depth++
			} else if s[i] == '}' {
				if depth == 0 {
					end = i
					break
				}
				depth--
			}
		}
		if end < 0 {
			return "", fmt.Errorf("unterminated interpolation in %q", s)
		}

		v, err := substituteVars(s[start+2:end], sc)
		if err != nil {
			return "", err
		}
		b.WriteString(s[:start])
		b.WriteString(unquote(strings.TrimSpace(arithmetic(v))))
		s = s[end+1:]
	}
}

// substituteVars replaces $name references outside strings.
func substituteVars(s string, sc *scope) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
			continue
		}
		if ch == '"' || ch == '\'' {
			quote = ch
			b.WriteByte(ch)
			continue
		}
		if ch != '$' || i+1 >= len(s) || !isIdentStart(s[i+1]) {
			b.WriteByte(ch)
			continue
		}

		j := i + 1
		for j < len(s) && isIdentChar(s[j]) {
			j++
		}
		name := normalizeVar(s[i+1 : j])
		v, ok := sc.get(name)
		if !ok {
			return "", fmt.Errorf("undefined variable $%s", s[i+1:j])
		}
		b.WriteString(v)
		i = j - 1
	}
	return b.String(), nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '-' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// arithmetic folds "+ - *" between numbers at the top level and also "/"
// inside plain parentheses. Anything it cannot fold is left as written.
func arithmetic(s string) string {
	tokens := splitSpaces(s)
	if len(tokens) == 0 {
		return ""
	}
	for i, tok := range tokens {
		if isParenGroup(tok) {
			inner := strings.Join(reduce(splitSpaces(arithmetic(tok[1:len(tok)-1])), true), " ")
			if numberPattern.MatchString(inner) {
				tokens[i] = inner
			} else {
				tokens[i] = "(" + inner + ")"
			}
		}
	}
	return strings.Join(reduce(tokens, false), " ")
}

func reduce(tokens []string, allowDiv bool) []string {
	groups := [][]string{{"*"}, {"+", "-"}}
	if allowDiv {
		groups[0] = []string{"*", "/"}
	}
	for _, ops := range groups {
		for i := 1; i+1 < len(tokens); {
			if contains(ops, tokens[i]) {
				if v, ok := applyOp(tokens[i-1], tokens[i], tokens[i+1]); ok {
					tokens = append(tokens[:i-1], append([]string{v}, tokens[i+2:]...)...)
					continue
				}
			}
			i++
		}
	}
	return tokens
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func applyOp(left, op, right string) (string, bool) {
	lm := numberPattern.FindStringSubmatch(left)
	rm := numberPattern.FindStringSubmatch(right)
	if lm == nil || rm == nil {
		return "", false
	}
	a, _ := strconv.ParseFloat(lm[1], 64)
	b, _ := strconv.ParseFloat(rm[1], 64)
	lu, ru := lm[2], rm[2]

	var result float64
	unit := lu
	switch op {
	case "+", "-":
		if lu != "" && ru != "" && lu != ru {
			return "", false
		}
		if unit == "" {
			unit = ru
		}
		if op == "+" {
			result = a + b
		} else {
			result = a - b
		}
	case "*":
		if lu != "" && ru != "" {
			return "", false
		}
		if unit == "" {
			unit = ru
		}
		result = a * b
	case "/":
		if b == 0 {
			return "", false
		}
		switch {
		case ru == "":
		case lu == ru:
			unit = ""
		default:
			return "", false
		}
		result = a / b
	default:
		return "", false
	}
	return formatNumber(result) + unit, true
}

func formatNumber(v float64) string {
	v = math.Round(v*1e10) / 1e10
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// splitSpaces splits on whitespace outside strings and parentheses.
func splitSpaces(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote byte
	depth := 0

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')' && depth > 0:
			depth--
		case depth == 0 && (ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'):
			flush()
			continue
		}
		cur.WriteByte(ch)
	}
	flush()
	return tokens
}

// isParenGroup reports whether tok is a single parenthesised group, as
// opposed to a function call or two adjacent groups.
func isParenGroup(tok string) bool {
	if len(tok) < 2 || tok[0] != '(' || tok[len(tok)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(tok); i++ {
		switch tok[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(tok)-1 {
				return false
			}
		}
	}
	return depth == 0
}

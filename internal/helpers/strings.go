package helpers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/pagelume/internal/template"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)

	slugStrip    = regexp.MustCompile(`[^A-Za-z0-9_\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_-]+`)
)

// stringArg returns args[i] when it is a non-empty string. Other values
// pass through untouched, so falsy input yields falsy output.
func stringArg(args []any, i int) (string, any, bool) {
	v := arg(args, i)
	switch s := v.(type) {
	case string:
		return s, v, s != ""
	case template.SafeString:
		return string(s), v, s != ""
	}
	return "", v, false
}

func uppercase(args []any, _ *template.Options) (any, error) {
	s, v, ok := stringArg(args, 0)
	if !ok {
		return v, nil
	}
	return upper.String(s), nil
}

func lowercase(args []any, _ *template.Options) (any, error) {
	s, v, ok := stringArg(args, 0)
	if !ok {
		return v, nil
	}
	return lower.String(s), nil
}

// capitalize upper-cases the first character only.
func capitalize(args []any, _ *template.Options) (any, error) {
	s, v, ok := stringArg(args, 0)
	if !ok {
		return v, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	return upper.String(string(r)) + s[size:], nil
}

func truncate(args []any, _ *template.Options) (any, error) {
	s, v, ok := stringArg(args, 0)
	if !ok {
		return v, nil
	}
	n, isNum := template.ToNumber(arg(args, 1))
	runes := []rune(s)
	if !isNum || float64(len(runes)) <= n {
		return s, nil
	}
	if n < 0 {
		n = 0
	}
	return string(runes[:int(n)]) + "...", nil
}

// replace substitutes every match of the find pattern.
func replace(args []any, _ *template.Options) (any, error) {
	s, v, ok := stringArg(args, 0)
	if !ok {
		return v, nil
	}
	pattern, err := regexp.Compile(template.ToString(arg(args, 1)))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return pattern.ReplaceAllString(s, template.ToString(arg(args, 2))), nil
}

func slugify(args []any, _ *template.Options) (any, error) {
	s, v, ok := stringArg(args, 0)
	if !ok {
		return v, nil
	}
	slug := lower.String(s)
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-"), nil
}

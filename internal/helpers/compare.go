package helpers

import (
	"strings"

	"github.com/conneroisu/pagelume/internal/template"
)

func eq(args []any, _ *template.Options) (any, error) {
	return template.StrictEqual(arg(args, 0), arg(args, 1)), nil
}

func ne(args []any, _ *template.Options) (any, error) {
	return !template.StrictEqual(arg(args, 0), arg(args, 1)), nil
}

// compare orders two raw values: strings lexically, anything else
// numerically. ok is false when the values are unordered, which includes
// a missing value on either side.
func compare(a, b any) (int, bool) {
	sa, aString := a.(string)
	sb, bString := b.(string)
	if aString && bString {
		return strings.Compare(sa, sb), true
	}

	fa, okA := template.ToNumber(a)
	fb, okB := template.ToNumber(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	}
	return 0, true
}

func compareWith(accept func(int) bool) template.HelperFunc {
	return func(args []any, _ *template.Options) (any, error) {
		c, ok := compare(arg(args, 0), arg(args, 1))
		return ok && accept(c), nil
	}
}

func and(args []any, _ *template.Options) (any, error) {
	for _, a := range args {
		if !template.Truthy(a) {
			return false, nil
		}
	}
	return true, nil
}

func or(args []any, _ *template.Options) (any, error) {
	for _, a := range args {
		if template.Truthy(a) {
			return true, nil
		}
	}
	return false, nil
}

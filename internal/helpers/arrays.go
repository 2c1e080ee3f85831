package helpers

import (
	"strings"

	"github.com/conneroisu/pagelume/internal/template"
)

func length(args []any, _ *template.Options) (any, error) {
	list, ok := template.ToList(arg(args, 0))
	if !ok {
		return 0, nil
	}
	return len(list), nil
}

func first(args []any, _ *template.Options) (any, error) {
	list, ok := template.ToList(arg(args, 0))
	if !ok || len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func last(args []any, _ *template.Options) (any, error) {
	list, ok := template.ToList(arg(args, 0))
	if !ok || len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

// join uses ", " when the separator is missing or empty.
func join(args []any, _ *template.Options) (any, error) {
	list, ok := template.ToList(arg(args, 0))
	if !ok {
		return "", nil
	}
	sep := template.ToString(arg(args, 1))
	if sep == "" {
		sep = ", "
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = template.ToString(item)
	}
	return strings.Join(parts, sep), nil
}

func contains(args []any, _ *template.Options) (any, error) {
	list, ok := template.ToList(arg(args, 0))
	if !ok {
		return false, nil
	}
	needle := arg(args, 1)
	for _, item := range list {
		if template.StrictEqual(item, needle) {
			return true, nil
		}
	}
	return false, nil
}

// limit returns the first n items. A negative n counts from the end.
func limit(args []any, _ *template.Options) (any, error) {
	list, ok := template.ToList(arg(args, 0))
	if !ok {
		return []any{}, nil
	}
	f, _ := template.ToNumber(arg(args, 1))
	n := int(f)
	if n < 0 {
		n += len(list)
	}
	n = max(0, min(n, len(list)))
	return list[:n], nil
}

package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/conneroisu/pagelume/internal/template"
)

// toJSON pretty-prints its argument with two-space indentation.
func toJSON(args []any, _ *template.Options) (any, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(arg(args, 0)); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func typeOf(args []any, _ *template.Options) (any, error) {
	v := arg(args, 0)
	switch v.(type) {
	case nil:
		return "undefined", nil
	case bool:
		return "boolean", nil
	case string, template.SafeString:
		return "string", nil
	}
	if template.IsNumber(v) {
		return "number", nil
	}
	if reflect.ValueOf(v).Kind() == reflect.Func {
		return "function", nil
	}
	return "object", nil
}

// defaultValue falls back on any falsy value, "" and 0 included.
func defaultValue(args []any, _ *template.Options) (any, error) {
	if v := arg(args, 0); template.Truthy(v) {
		return v, nil
	}
	return arg(args, 1), nil
}

// random returns an integer in [min, max].
func random(cfg *config) template.HelperFunc {
	return func(args []any, _ *template.Options) (any, error) {
		lo := number(arg(args, 0))
		hi := number(arg(args, 1))
		return math.Floor(cfg.random()*(hi-lo+1)) + lo, nil
	}
}

// times renders its block n times with {index, first, last} as the
// context. The same values are available as @index, @first and @last.
func times(args []any, opts *template.Options) (any, error) {
	// A fractional count rounds up: 2.5 runs three times.
	n, ok := template.ToNumber(arg(args, 0))
	if !ok || math.IsInf(n, 0) {
		return template.SafeString(""), nil
	}

	data := opts.Data
	if data == nil {
		data = template.NewFrame()
	}

	var b strings.Builder
	for i := 0; float64(i) < n; i++ {
		last := float64(i) == n-1
		frame := data.New()
		frame.Set("index", i)
		frame.Set("first", i == 0)
		frame.Set("last", last)
		out, err := opts.FnWith(map[string]any{
			"index": i,
			"first": i == 0,
			"last":  last,
		}, frame)
		if err != nil {
			return nil, err
		}
		b.WriteString(out)
	}
	return template.SafeString(b.String()), nil
}

const switchValueKey = "switch_value"

// switchHelper captures its argument for the case blocks inside it.
func switchHelper(args []any, opts *template.Options) (any, error) {
	data := opts.Data
	if data == nil {
		data = template.NewFrame()
	}
	frame := data.New()
	frame.Set(switchValueKey, arg(args, 0))

	out, err := opts.FnWith(opts.Context, frame)
	if err != nil {
		return nil, err
	}
	return template.SafeString(out), nil
}

func caseHelper(args []any, opts *template.Options) (any, error) {
	if opts.Data == nil || !template.StrictEqual(arg(args, 0), opts.Data.Get(switchValueKey)) {
		return "", nil
	}
	out, err := opts.Fn(opts.Context)
	if err != nil {
		return nil, err
	}
	return template.SafeString(out), nil
}

func asset(cfg *config) template.HelperFunc {
	return func(args []any, _ *template.Options) (any, error) {
		prefix := strings.TrimSuffix(cfg.assetPrefix, "/")
		path := strings.TrimPrefix(template.ToString(arg(args, 0)), "/")
		return prefix + "/" + path, nil
	}
}

// componentClass returns base plus base--key for every truthy modifier,
// modifiers in key order.
func componentClass(args []any, _ *template.Options) (any, error) {
	base := template.ToString(arg(args, 0))
	classes := []string{base}

	modifiers := arg(args, 1)
	if !template.IsObject(modifiers) {
		return base, nil
	}

	keys := make([]string, 0)
	rv := reflect.Indirect(reflect.ValueOf(modifiers))
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			for _, k := range rv.MapKeys() {
				keys = append(keys, k.String())
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if rv.Type().Field(i).IsExported() {
				keys = append(keys, rv.Type().Field(i).Name)
			}
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if template.Truthy(template.Lookup(modifiers, key)) {
			classes = append(classes, base+"--"+key)
		}
	}
	return strings.Join(classes, " "), nil
}

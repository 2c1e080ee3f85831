package template

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

const maxPartialDepth = 100

// RenderError reports a failure while executing a compiled template.
type RenderError struct {
	Line   int
	Column int
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func renderError(line, col int, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Line: line, Column: col, Err: err}
}

// scope is one level of the context stack that "../" walks.
type scope struct {
	value  any
	parent *scope
}

// push returns a scope for v. The stack only grows when the context
// actually changes, so {{#if}} and friends do not add a level.
func (s *scope) push(v any) *scope {
	if sameContext(s.value, v) {
		return s
	}
	return &scope{value: v, parent: s}
}

func sameContext(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

type state struct {
	helpers  map[string]HelperFunc
	partials map[string][]node
	depth    int
}

func (st *state) helper(name string) (HelperFunc, bool) {
	if fn, ok := st.helpers[name]; ok {
		return fn, true
	}
	fn, ok := builtins[name]
	return fn, ok
}

func (st *state) renderString(nodes []node, sc *scope, data *Frame) (string, error) {
	var b strings.Builder
	if err := st.render(&b, nodes, sc, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (st *state) render(b *strings.Builder, nodes []node, sc *scope, data *Frame) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *textNode:
			b.WriteString(n.text)

		case *mustacheNode:
			out, err := st.mustache(n, sc, data)
			if err != nil {
				return renderError(n.line, n.col, err)
			}
			b.WriteString(out)

		case *blockNode:
			out, err := st.block(n, sc, data)
			if err != nil {
				return renderError(n.line, n.col, err)
			}
			b.WriteString(out)

		case *partialNode:
			out, err := st.partial(n, sc, data)
			if err != nil {
				return renderError(n.line, n.col, err)
			}
			b.WriteString(out)
		}
	}
	return nil
}

func (st *state) mustache(n *mustacheNode, sc *scope, data *Frame) (string, error) {
	v, _, err := st.invoke(n.expr, sc, data, nil, nil)
	if err != nil {
		return "", err
	}
	if safe, ok := v.(SafeString); ok {
		return string(safe), nil
	}
	if n.raw {
		return ToString(v), nil
	}
	return EscapeExpression(ToString(v)), nil
}

func (st *state) program(nodes []node, sc *scope) programFunc {
	return func(ctx any, data *Frame) (string, error) {
		return st.renderString(nodes, sc.push(ctx), data)
	}
}

func (st *state) block(n *blockNode, sc *scope, data *Frame) (string, error) {
	fn := st.program(n.program, sc)
	inverse := st.program(n.inverse, sc)
	if n.inverted {
		fn, inverse = inverse, fn
	}

	v, helped, err := st.invoke(n.expr, sc, data, fn, inverse)
	if err != nil {
		return "", err
	}
	if helped {
		return ToString(v), nil
	}

	opts := &Options{Name: operandString(n.expr.head), Context: sc.value, Data: data, fn: fn, inverse: inverse}
	switch {
	case v == true:
		return opts.Fn(sc.value)
	case IsEmpty(v):
		return opts.Inverse(sc.value)
	case IsList(v):
		out, err := helperEach([]any{v}, opts)
		return ToString(out), err
	}
	return opts.Fn(v)
}

// invoke calls the helper named by e's head, or resolves the head as a
// value when no helper exists. helped reports which one happened.
func (st *state) invoke(e *expr, sc *scope, data *Frame, fn, inverse programFunc) (any, bool, error) {
	if name, ok := helperName(e.head); ok {
		if h, ok := st.helper(name); ok {
			args, hash, err := st.arguments(e, sc, data)
			if err != nil {
				return nil, true, err
			}
			opts := &Options{
				Name:    name,
				Hash:    hash,
				Context: sc.value,
				Data:    data,
				fn:      fn,
				inverse: inverse,
			}
			out, err := h(args, opts)
			if err != nil {
				var re *RenderError
				if errors.As(err, &re) {
					return nil, true, err
				}
				return nil, true, fmt.Errorf("helper %q: %w", name, err)
			}
			return out, true, nil
		}
	}

	if len(e.params) > 0 || len(e.hash) > 0 {
		return nil, false, fmt.Errorf("missing helper %q", operandString(e.head))
	}
	v, err := st.operand(e.head, sc, data)
	return v, false, err
}

func (st *state) arguments(e *expr, sc *scope, data *Frame) ([]any, map[string]any, error) {
	args := make([]any, len(e.params))
	for i, p := range e.params {
		v, err := st.operand(p, sc, data)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	hash := make(map[string]any, len(e.hash))
	for _, pair := range e.hash {
		v, err := st.operand(pair.value, sc, data)
		if err != nil {
			return nil, nil, err
		}
		hash[pair.key] = v
	}
	return args, hash, nil
}

func (st *state) operand(op operand, sc *scope, data *Frame) (any, error) {
	switch o := op.(type) {
	case literal:
		return o.value, nil
	case *pathExpr:
		return resolvePath(o, sc, data), nil
	case subExpr:
		v, _, err := st.invoke(o.expr, sc, data, nil, nil)
		return v, err
	}
	return nil, fmt.Errorf("unknown operand %T", op)
}

func resolvePath(p *pathExpr, sc *scope, data *Frame) any {
	if p.data {
		if data == nil {
			return nil
		}
		v := data.Get(p.parts[0])
		for _, part := range p.parts[1:] {
			v = Lookup(v, part)
		}
		return v
	}

	s := sc
	for i := 0; i < p.depth && s.parent != nil; i++ {
		s = s.parent
	}
	v := s.value
	for _, part := range p.parts {
		v = Lookup(v, part)
		if v == nil {
			return nil
		}
	}
	return v
}

func (st *state) partial(n *partialNode, sc *scope, data *Frame) (string, error) {
	name, err := st.partialName(n.expr.head, sc, data)
	if err != nil {
		return "", err
	}
	nodes, ok := st.partials[name]
	if !ok {
		return "", fmt.Errorf("the partial %q could not be found", name)
	}
	if st.depth >= maxPartialDepth {
		return "", fmt.Errorf("partial %q exceeds the maximum nesting depth of %d", name, maxPartialDepth)
	}

	ctx := sc.value
	if len(n.expr.params) == 1 {
		ctx, err = st.operand(n.expr.params[0], sc, data)
		if err != nil {
			return "", err
		}
	}
	if len(n.expr.hash) > 0 {
		merged := copyObject(ctx)
		for _, pair := range n.expr.hash {
			v, err := st.operand(pair.value, sc, data)
			if err != nil {
				return "", err
			}
			merged[pair.key] = v
		}
		ctx = merged
	}

	st.depth++
	defer func() { st.depth-- }()
	return st.renderString(nodes, sc.push(ctx), data)
}

func (st *state) partialName(head operand, sc *scope, data *Frame) (string, error) {
	switch h := head.(type) {
	case *pathExpr:
		return h.original, nil
	case literal:
		return ToString(h.value), nil
	case subExpr:
		v, _, err := st.invoke(h.expr, sc, data, nil, nil)
		if err != nil {
			return "", err
		}
		return ToString(v), nil
	}
	return "", fmt.Errorf("invalid partial name")
}

// copyObject returns a shallow map copy of a map or struct value.
func copyObject(v any) map[string]any {
	out := make(map[string]any)
	if v == nil {
		return out
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return out
		}
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				out[t.Field(i).Name] = rv.Field(i).Interface()
			}
		}
	}
	return out
}

var builtins map[string]HelperFunc

// Builtins returns the names of the helpers every engine provides.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	builtins = map[string]HelperFunc{
		"if":     helperIf,
		"unless": helperUnless,
		"each":   helperEach,
		"with":   helperWith,
		"lookup": helperLookup,
	}
}

func blockResult(s string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return SafeString(s), nil
}

func conditionEmpty(cond any, opts *Options) bool {
	if Truthy(opts.HashValue("includeZero")) && IsNumber(cond) {
		f, _ := ToNumber(cond)
		if f == 0 {
			return false
		}
	}
	return IsEmpty(cond)
}

func helperIf(args []any, opts *Options) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("#if requires exactly one argument")
	}
	if conditionEmpty(args[0], opts) {
		return blockResult(opts.Inverse(opts.Context))
	}
	return blockResult(opts.Fn(opts.Context))
}

func helperUnless(args []any, opts *Options) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("#unless requires exactly one argument")
	}
	if conditionEmpty(args[0], opts) {
		return blockResult(opts.Fn(opts.Context))
	}
	return blockResult(opts.Inverse(opts.Context))
}

func helperWith(args []any, opts *Options) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("#with requires exactly one argument")
	}
	if IsEmpty(args[0]) {
		return blockResult(opts.Inverse(opts.Context))
	}
	return blockResult(opts.Fn(args[0]))
}

func helperLookup(args []any, _ *Options) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("lookup requires two arguments")
	}
	return Lookup(args[0], ToString(args[1])), nil
}

func helperEach(args []any, opts *Options) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("#each requires exactly one argument")
	}
	data := opts.Data
	if data == nil {
		data = NewFrame()
	}

	var b strings.Builder
	iterate := func(i, n int, key, item any) error {
		frame := data.New()
		frame.Set("index", i)
		frame.Set("key", key)
		frame.Set("first", i == 0)
		frame.Set("last", i == n-1)
		out, err := opts.FnWith(item, frame)
		if err != nil {
			return err
		}
		b.WriteString(out)
		return nil
	}

	v := args[0]
	if list, ok := ToList(v); ok {
		for i, item := range list {
			if err := iterate(i, len(list), i, item); err != nil {
				return nil, err
			}
		}
		if len(list) == 0 {
			return blockResult(opts.Inverse(opts.Context))
		}
		return SafeString(b.String()), nil
	}

	keys, values := objectEntries(v)
	if len(keys) == 0 {
		return blockResult(opts.Inverse(opts.Context))
	}
	for i, key := range keys {
		if err := iterate(i, len(keys), key, values[i]); err != nil {
			return nil, err
		}
	}
	return SafeString(b.String()), nil
}

// objectEntries lists a map's entries by sorted key, or a struct's exported
// fields in declaration order.
func objectEntries(v any) ([]string, []any) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		keys := sortedKeys(rv)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
		}
		return keys, values
	case reflect.Struct:
		var (
			keys   []string
			values []any
		)
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				keys = append(keys, t.Field(i).Name)
				values = append(values, rv.Field(i).Interface())
			}
		}
		return keys, values
	}
	return nil, nil
}

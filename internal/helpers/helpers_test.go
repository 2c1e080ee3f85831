package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pagelume/internal/template"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *template.Engine {
	t.Helper()
	reg := template.NewRegistry()
	Register(reg,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
		WithRand(func() float64 { return 0.5 }),
	)
	return template.NewEngine(reg)
}

func renderWith(t *testing.T, e *template.Engine, src string, data any) string {
	t.Helper()
	tmpl, err := e.Compile(src)
	require.NoError(t, err)
	out, err := tmpl.Render(data)
	require.NoError(t, err)
	return out
}

func TestCatalog(t *testing.T) {
	data := map[string]any{
		"n":     5,
		"zero":  0,
		"s":     "hello world",
		"empty": "",
		"list":  []any{"a", "b", "c"},
		"nums":  []any{1.0, 2.0},
		"obj":   map[string]any{"active": true, "large": 1, "hidden": false},
		"date":  "2024-01-05T09:03:07Z",
		"past":  fixedNow.Add(-49 * time.Hour),
	}

	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{"eq", `{{eq n 5}}`, "true"},
		{"eq is strict", `{{eq n "5"}}`, "false"},
		{"ne", `{{ne n 4}}`, "true"},
		{"lt", `{{lt n 10}}`, "true"},
		{"gt strings", `{{gt "b" "a"}}`, "true"},
		{"lte", `{{lte n 5}}`, "true"},
		{"gte", `{{gte n 6}}`, "false"},
		{"gt unordered", `{{gt "x" 1}}`, "false"},
		{"lt missing", `{{#if (lt missing 5)}}yes{{else}}no{{/if}}`, "no"},
		{"gte missing", `{{#if (gte 0 missing)}}yes{{else}}no{{/if}}`, "no"},
		{"lte missing both", `{{lte missing other}}`, "false"},
		{"and", `{{and n s}}`, "true"},
		{"and falsy", `{{and n zero}}`, "false"},
		{"or", `{{or zero empty s}}`, "true"},
		{"or none", `{{or zero empty}}`, "false"},
		{"if with sub-expression", `{{#if (eq n 5)}}five{{/if}}`, "five"},

		{"uppercase", `{{uppercase s}}`, "HELLO WORLD"},
		{"lowercase", `{{lowercase "ÀB"}}`, "àb"},
		{"capitalize", `{{capitalize s}}`, "Hello world"},
		{"capitalize empty", `[{{capitalize empty}}]`, "[]"},
		{"truncate", `{{truncate s 5}}`, "hello..."},
		{"truncate short", `{{truncate s 50}}`, "hello world"},
		{"replace", `{{replace s "o" "0"}}`, "hell0 w0rld"},
		{"replace pattern", `{{replace s "[aeiou]" "*"}}`, "h*ll* w*rld"},
		{"slugify", `{{slugify "Hello, World!  Foo"}}`, "hello-world-foo"},
		{"slugify underscores", `{{slugify "--a_b  c--"}}`, "a-b-c"},

		{"length", `{{length list}}`, "3"},
		{"length non-list", `{{length s}}`, "0"},
		{"first", `{{first list}}`, "a"},
		{"last", `{{last list}}`, "c"},
		{"first non-list", `[{{first n}}]`, "[]"},
		{"join default", `{{join list}}`, "a, b, c"},
		{"join", `{{join list "-"}}`, "a-b-c"},
		{"join non-list", `[{{join n}}]`, "[]"},
		{"contains", `{{contains list "b"}}`, "true"},
		{"contains missing", `{{contains list "z"}}`, "false"},
		{"limit", `{{#each (limit list 2)}}{{this}}{{/each}}`, "ab"},
		{"limit non-list", `{{length (limit n 2)}}`, "0"},

		{"add", `{{add n 2}}`, "7"},
		{"add strings", `{{add "a" n}}`, "a5"},
		{"subtract", `{{subtract n 7}}`, "-2"},
		{"multiply", `{{multiply n 1.5}}`, "7.5"},
		{"divide", `{{divide n 2}}`, "2.5"},
		{"divide by zero", `{{divide n 0}}`, "0"},
		{"mod", `{{mod n 3}}`, "2"},
		{"round", `{{round 2.5}}`, "3"},
		{"round decimals", `{{round 1.005 2}}`, "1.01"},
		{"floor", `{{floor 2.7}}`, "2"},
		{"ceil", `{{ceil 2.1}}`, "3"},

		{"formatDate", `{{formatDate date "YYYY-MM-DD HH:mm:ss"}}`, "2024-01-05 09:03:07"},
		{"formatDate first token only", `{{formatDate date "DD/DD"}}`, "05/DD"},
		{"formatDate repeated year", `{{formatDate date "YYYY/YYYY"}}`, "2024/YYYY"},
		{"formatDate invalid", `[{{formatDate "nope" "YYYY"}}]`, "[]"},
		{"relativeTime days", `{{relativeTime past}}`, "2 days ago"},

		{"typeof number", `{{typeof n}}`, "number"},
		{"typeof string", `{{typeof s}}`, "string"},
		{"typeof object", `{{typeof obj}}`, "object"},
		{"typeof missing", `{{typeof nope}}`, "undefined"},
		{"default falsy", `{{default zero "x"}}`, "x"},
		{"default empty", `{{default empty "x"}}`, "x"},
		{"default set", `{{default s "x"}}`, "hello world"},
		{"random", `{{random 1 10}}`, "6"},
		{"times fractional", `{{#times 2.5}}x{{#if last}}L{{/if}}{{/times}}`, "xxx"},
		{"times none", `[{{#times missing}}x{{/times}}]`, "[]"},
		{"times", `{{#times 3}}{{index}}{{#if first}}F{{/if}}{{#if @last}}L{{/if}}{{/times}}`, "0F12L"},
		{"switch", `{{#switch n}}{{#case 4}}four{{/case}}{{#case 5}}five{{/case}}{{/switch}}`, "five"},
		{"asset", `{{asset "img/logo.png"}}`, "/assets/img/logo.png"},
		{"componentClass", `{{componentClass "card" obj}}`, "card card--active card--large"},
		{"componentClass without modifiers", `{{componentClass "card"}}`, "card"},
	}

	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderWith(t, e, tt.src, data))
		})
	}
}

func TestRelativeTimeUnits(t *testing.T) {
	helper := relativeTime(&config{now: func() time.Time { return fixedNow }, location: time.UTC})

	tests := []struct {
		ago      time.Duration
		expected string
	}{
		{24 * time.Hour, "1 day ago"},
		{3 * time.Hour, "3 hours ago"},
		{time.Hour + 59*time.Minute, "1 hour ago"},
		{2 * time.Minute, "2 minutes ago"},
		{time.Minute, "1 minute ago"},
		{30 * time.Second, "just now"},
		{-time.Hour, "just now"},
	}
	for _, tt := range tests {
		out, err := helper([]any{fixedNow.Add(-tt.ago)}, &template.Options{})
		require.NoError(t, err)
		assert.Equal(t, tt.expected, out)
	}

	out, err := helper([]any{"garbage"}, &template.Options{})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestJSON(t *testing.T) {
	e := newEngine(t)
	out := renderWith(t, e, `{{{json obj}}}`, map[string]any{
		"obj": map[string]any{"b": "<x>", "a": 1},
	})
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": \"<x>\"\n}", out)

	out = renderWith(t, e, `{{json obj}}`, map[string]any{"obj": []any{"a"}})
	assert.Equal(t, "[\n  &quot;a&quot;\n]", out)
}

func TestAssetPrefix(t *testing.T) {
	reg := template.NewRegistry()
	Register(reg, WithAssetPrefix("/static"))
	out := renderWith(t, template.NewEngine(reg), `{{asset "/css/a.css"}}`, nil)
	assert.Equal(t, "/static/css/a.css", out)
}

func TestReplaceInvalidPattern(t *testing.T) {
	tmpl, err := newEngine(t).Compile(`{{replace "a" "(" "b"}}`)
	require.NoError(t, err)
	_, err = tmpl.Render(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestRegisterIsolatedPerRegistry(t *testing.T) {
	reg := template.NewRegistry()
	Register(reg)
	assert.Equal(t, Names(), reg.Names())
	assert.Len(t, Names(), 39)

	other := template.NewRegistry()
	_, ok := other.Lookup("eq")
	assert.False(t, ok)
}

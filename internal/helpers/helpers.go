// Package helpers provides the helper catalog available to component
// templates: comparison, string, array, math, date and utility helpers.
package helpers

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/conneroisu/pagelume/internal/template"
)

// DefaultAssetPrefix is the URL prefix the asset helper applies.
const DefaultAssetPrefix = "/assets/"

type config struct {
	now         func() time.Time
	location    *time.Location
	random      func() float64
	assetPrefix string
}

// Option configures the catalog.
type Option func(*config)

// WithClock sets the reference time used by relativeTime.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithLocation sets the time zone dates are formatted in.
func WithLocation(loc *time.Location) Option {
	return func(c *config) {
		c.location = loc
	}
}

// WithRand sets the source of random numbers in [0, 1).
func WithRand(fn func() float64) Option {
	return func(c *config) {
		c.random = fn
	}
}

// WithAssetPrefix sets the URL prefix of the asset helper.
func WithAssetPrefix(prefix string) Option {
	return func(c *config) {
		c.assetPrefix = prefix
	}
}

// Register adds the full catalog to reg. Existing helpers with the same
// names are replaced.
func Register(reg *template.Registry, opts ...Option) {
	cfg := &config{
		now:         time.Now,
		location:    time.Local,
		random:      rand.Float64,
		assetPrefix: DefaultAssetPrefix,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	for name, fn := range catalog(cfg) {
		reg.Register(name, fn)
	}
}

// Names returns the names of every helper in the catalog.
func Names() []string {
	names := make([]string, 0)
	for name := range catalog(&config{}) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func catalog(cfg *config) map[string]template.HelperFunc {
	return map[string]template.HelperFunc{
		"eq":  eq,
		"ne":  ne,
		"lt":  compareWith(func(c int) bool { return c < 0 }),
		"gt":  compareWith(func(c int) bool { return c > 0 }),
		"lte": compareWith(func(c int) bool { return c <= 0 }),
		"gte": compareWith(func(c int) bool { return c >= 0 }),
		"and": and,
		"or":  or,

		"uppercase":  uppercase,
		"lowercase":  lowercase,
		"capitalize": capitalize,
		"truncate":   truncate,
		"replace":    replace,
		"slugify":    slugify,

		"length":   length,
		"first":    first,
		"last":     last,
		"join":     join,
		"contains": contains,
		"limit":    limit,

		"add":      add,
		"subtract": arithmetic(func(a, b float64) float64 { return a - b }),
		"multiply": arithmetic(func(a, b float64) float64 { return a * b }),
		"divide":   divide,
		"mod":      mod,
		"round":    round,
		"floor":    unary(mathFloor),
		"ceil":     unary(mathCeil),

		"formatDate":   formatDate(cfg),
		"relativeTime": relativeTime(cfg),

		"json":           toJSON,
		"typeof":         typeOf,
		"default":        defaultValue,
		"random":         random(cfg),
		"times":          times,
		"switch":         switchHelper,
		"case":           caseHelper,
		"asset":          asset(cfg),
		"componentClass": componentClass,
	}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

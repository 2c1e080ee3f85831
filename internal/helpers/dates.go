package helpers

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/conneroisu/pagelume/internal/template"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// parseDate accepts time.Time, RFC 3339 and ISO-like strings, or epoch
// milliseconds. Zone-less strings are read in loc.
func parseDate(v any, loc *time.Location) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, !d.IsZero()
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if template.IsNumber(v) {
		ms, ok := template.ToNumber(v)
		if !ok || math.IsInf(ms, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

// formatDate substitutes the first occurrence of each YYYY, MM, DD, HH, mm
// and ss token, in that order.
func formatDate(cfg *config) template.HelperFunc {
	return func(args []any, _ *template.Options) (any, error) {
		t, ok := parseDate(arg(args, 0), cfg.location)
		if !ok {
			return "", nil
		}
		t = t.In(cfg.location)

		out := template.ToString(arg(args, 1))
		for _, sub := range []struct{ token, value string }{
			{"YYYY", fmt.Sprintf("%d", t.Year())},
			{"MM", fmt.Sprintf("%02d", int(t.Month()))},
			{"DD", fmt.Sprintf("%02d", t.Day())},
			{"HH", fmt.Sprintf("%02d", t.Hour())},
			{"mm", fmt.Sprintf("%02d", t.Minute())},
			{"ss", fmt.Sprintf("%02d", t.Second())},
		} {
			out = strings.Replace(out, sub.token, sub.value, 1)
		}
		return out, nil
	}
}

// relativeTime reports the largest whole unit elapsed since the date.
func relativeTime(cfg *config) template.HelperFunc {
	return func(args []any, _ *template.Options) (any, error) {
		t, ok := parseDate(arg(args, 0), cfg.location)
		if !ok {
			return "", nil
		}
		diff := cfg.now().Sub(t)

		for _, unit := range []struct {
			name string
			size time.Duration
		}{
			{"day", 24 * time.Hour},
			{"hour", time.Hour},
			{"minute", time.Minute},
		} {
			if n := int64(diff / unit.size); n > 0 {
				return plural(n, unit.name) + " ago", nil
			}
		}
		return "just now", nil
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

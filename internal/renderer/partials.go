package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PartialPattern selects partial templates beneath a partials directory.
const PartialPattern = "**/*.html"

// LoadPartials registers every template under dir as a partial named by its
// slash-separated path without the extension, so dir/forms/input.html
// becomes {{> forms/input}}. A missing dir registers nothing. It returns
// the registered names.
func (r *Renderer) LoadPartials(ctx context.Context, dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading partials dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("partials dir %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), PartialPattern)
	if err != nil {
		return nil, fmt.Errorf("matching partials: %w", err)
	}
	sort.Strings(matches)

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		src, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(match)))
		if err != nil {
			return names, fmt.Errorf("reading partial %s: %w", match, err)
		}
		name := strings.TrimSuffix(match, ".html")
		if err := r.RegisterPartial(name, string(src)); err != nil {
			return names, fmt.Errorf("partial %s: %w", name, err)
		}
		names = append(names, name)
	}

	r.logger.Debug(ctx, "partials loaded", "dir", dir, "count", len(names))
	return names, nil
}

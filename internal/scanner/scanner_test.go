package scanner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/logging"
)

func writeComponent(t *testing.T, root, componentType, variation, meta string) string {
	t.Helper()
	dir := filepath.Join(root, componentType, variation)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if meta != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte(meta), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div>{{title}}</div>"), 0o644))
	return dir
}

func TestDiscoverSkipsCorruptedDescriptor(t *testing.T) {
	root := t.TempDir()
	writeComponent(t, root, "hero", "dark", `{"name": "Dark Hero", "fields": []}`)
	writeComponent(t, root, "hero", "broken", `{"name": `)

	result, err := New().Discover(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Locations, 1)
	assert.Equal(t, "hero/dark", result.Locations[0].Key())
	require.Len(t, result.Warnings, 1)
	assert.True(t, errors.IsDiscoveryWarning(result.Warnings[0]))
}

func TestDiscoverMissingMetaIsWarning(t *testing.T) {
	root := t.TempDir()
	writeComponent(t, root, "card", "plain", "")

	result, err := New().Discover(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, result.Locations)
	require.Len(t, result.Warnings, 1)
	assert.True(t, errors.IsDiscoveryWarning(result.Warnings[0]))
}

func TestDiscoverSkipsReservedDirectories(t *testing.T) {
	root := t.TempDir()
	meta := `{"fields": []}`
	writeComponent(t, root, "button", "primary", meta)
	writeComponent(t, root, "node_modules", "pkg", meta)
	writeComponent(t, root, "_partials", "shared", meta)
	writeComponent(t, root, ".cache", "x", meta)
	writeComponent(t, root, "button", "_draft", meta)
	writeComponent(t, root, "legacy", "old", meta)

	result, err := New(WithIgnore("legacy")).Discover(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Locations, 1)
	assert.Equal(t, "button/primary", result.Locations[0].Key())
	assert.Empty(t, result.Warnings)
}

func TestDiscoverSortedAndIdentityFromDirectories(t *testing.T) {
	root := t.TempDir()
	writeComponent(t, root, "hero", "light", `{"type": "banner", "variation": "other", "fields": []}`)
	writeComponent(t, root, "footer", "simple", `{"fields": []}`)
	writeComponent(t, root, "hero", "dark", `{"name": "Dark", "fields": []}`)

	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Format: "json", Output: &buf})

	result, err := New(WithLogger(logger)).Discover(context.Background(), root)
	require.NoError(t, err)

	var keys []string
	for _, loc := range result.Locations {
		keys = append(keys, loc.Key())
	}
	assert.Equal(t, []string{"footer/simple", "hero/dark", "hero/light"}, keys)

	light := result.Locations[2].Definition
	assert.Equal(t, "hero", light.Type)
	assert.Equal(t, "light", light.Variation)
	assert.Equal(t, "light", light.DisplayName)
	assert.Contains(t, buf.String(), "descriptor type differs from directory")

	assert.Len(t, result.Definitions(), 3)
}

func TestDiscoverUnreadableRoot(t *testing.T) {
	_, err := New().Discover(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, errors.KindOf(err))
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	writeComponent(t, root, "hero", "dark", `{"fields": [{"name": "title", "type": "text", "default": "Hi"}]}`)
	writeComponent(t, root, "hero", "broken", `not json`)

	s := New()
	ctx := context.Background()

	loc, err := s.Locate(ctx, root, "hero", "dark")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "hero", "dark"), loc.Path)
	assert.Equal(t, "Hi", loc.Definition.Defaults()["title"])

	testCases := []struct {
		name      string
		typ       string
		variation string
	}{
		{"missing variation", "hero", "missing-variation"},
		{"missing type", "nav", "dark"},
		{"traversal", "..", "hero"},
		{"invalid characters", "hero", "da rk"},
		{"reserved prefix", "hero", "_draft"},
		{"broken descriptor", "hero", "broken"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Locate(ctx, root, tc.typ, tc.variation)
			assert.True(t, errors.IsRouteMiss(err), "got %v", err)
		})
	}
}

func TestComponentPathFor(t *testing.T) {
	root := t.TempDir()

	testCases := []struct {
		name      string
		path      string
		typ       string
		variation string
		ok        bool
	}{
		{"template", filepath.Join(root, "hero", "dark", "index.html"), "hero", "dark", true},
		{"nested asset", filepath.Join(root, "hero", "dark", "assets", "scss", "styles.scss"), "hero", "dark", true},
		{"variation dir", filepath.Join(root, "hero", "dark"), "hero", "dark", true},
		{"type dir only", filepath.Join(root, "hero"), "", "", false},
		{"outside root", filepath.Join(filepath.Dir(root), "other", "a", "b"), "", "", false},
		{"root itself", root, "", "", false},
		{"shared partials", filepath.Join(root, "_partials", "x", "y.html"), "", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			typ, variation, ok := ComponentPathFor(root, tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.typ, typ)
			assert.Equal(t, tc.variation, variation)
		})
	}
}

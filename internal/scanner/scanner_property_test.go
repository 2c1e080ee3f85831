//go:build property
// +build property

package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestScannerProperties tests invariant properties of component discovery
func TestScannerProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Every valid directory is discovered exactly once and every broken
	// descriptor yields exactly one warning.
	properties.Property("locations plus warnings cover every variation", prop.ForAll(
		func(valid, broken int) bool {
			root := t.TempDir()
			for i := 0; i < valid; i++ {
				if err := writeMeta(root, "ok", fmt.Sprintf("v%d", i), `{"fields": []}`); err != nil {
					return false
				}
			}
			for i := 0; i < broken; i++ {
				if err := writeMeta(root, "bad", fmt.Sprintf("v%d", i), `{`); err != nil {
					return false
				}
			}

			result, err := New().Discover(context.Background(), root)
			if err != nil {
				return false
			}
			return len(result.Locations) == valid && len(result.Warnings) == broken
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 6),
	))

	// Discovery is idempotent.
	properties.Property("scanning twice yields identical keys", prop.ForAll(
		func(count int) bool {
			root := t.TempDir()
			for i := 0; i < count; i++ {
				if err := writeMeta(root, fmt.Sprintf("t%d", i%3), fmt.Sprintf("v%d", i), `{"fields": []}`); err != nil {
					return false
				}
			}

			first, err1 := New().Discover(context.Background(), root)
			second, err2 := New().Discover(context.Background(), root)
			if err1 != nil || err2 != nil || len(first.Locations) != len(second.Locations) {
				return false
			}
			for i := range first.Locations {
				if first.Locations[i].Key() != second.Locations[i].Key() {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 9),
	))

	properties.TestingRun(t)
}

func writeMeta(root, componentType, variation, meta string) error {
	dir := filepath.Join(root, componentType, variation)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MetaFile), []byte(meta), 0o644)
}

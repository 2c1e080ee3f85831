// Package scanner provides component discovery for pagelume.
//
// A components root is laid out as <type>/<variation>/, each variation
// directory holding a meta.json descriptor, an index.html template and an
// optional assets/ tree. The scanner walks exactly those two levels, parses
// every descriptor it finds and reports the unusable ones as discovery
// warnings without ever aborting the scan.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/types"
)

// MetaFile is the descriptor file name inside a variation directory.
const MetaFile = "meta.json"

// defaultIgnores are directory names never treated as component types or
// variations.
var defaultIgnores = []string{"node_modules", "dist", "build", ".git"}

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Location is one discovered component.
type Location struct {
	Type      string
	Variation string
	// Path is the variation directory, components root included
	Path       string
	Definition *types.ComponentDefinition
}

// Key returns the "type/variation" identity.
func (l Location) Key() string {
	return l.Type + "/" + l.Variation
}

// Result holds the outcome of one discovery pass.
type Result struct {
	Locations []Location
	// Warnings holds one DiscoveryWarning per skipped variation directory
	Warnings []error
}

// Definitions returns the discovered definitions in location order.
func (r *Result) Definitions() []*types.ComponentDefinition {
	defs := make([]*types.ComponentDefinition, 0, len(r.Locations))
	for _, loc := range r.Locations {
		defs = append(defs, loc.Definition)
	}
	return defs
}

// Scanner discovers components beneath a components root.
type Scanner struct {
	ignore map[string]struct{}
	logger logging.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithIgnore adds directory names to skip during discovery.
func WithIgnore(names ...string) Option {
	return func(s *Scanner) {
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				s.ignore[name] = struct{}{}
			}
		}
	}
}

// WithLogger sets the logger used for discovery warnings.
func WithLogger(logger logging.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger.WithComponent("scanner")
	}
}

// New creates a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		ignore: make(map[string]struct{}),
		logger: logging.NewNop(),
	}
	WithIgnore(defaultIgnores...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover enumerates every component beneath root. The only hard error is
// an unreadable root; every per-component problem becomes a warning.
func (s *Scanner) Discover(ctx context.Context, root string) (*Result, error) {
	typeDirs, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.NewIOError(root, err)
	}

	result := &Result{}
	for _, typeDir := range typeDirs {
		if !typeDir.IsDir() || s.skipped(typeDir.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		typePath := filepath.Join(root, typeDir.Name())
		variations, err := os.ReadDir(typePath)
		if err != nil {
			s.warn(ctx, result, errors.NewDiscoveryWarning(typePath, "unreadable type directory", err))
			continue
		}

		for _, variation := range variations {
			if !variation.IsDir() || s.skipped(variation.Name()) {
				continue
			}
			loc, err := s.load(ctx, typePath, typeDir.Name(), variation.Name())
			if err != nil {
				s.warn(ctx, result, err)
				continue
			}
			result.Locations = append(result.Locations, loc)
		}
	}

	sort.Slice(result.Locations, func(i, j int) bool {
		a, b := result.Locations[i], result.Locations[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Variation < b.Variation
	})

	s.logger.Debug(ctx, "discovery complete",
		"root", root,
		"components", len(result.Locations),
		"warnings", len(result.Warnings))

	return result, nil
}

// Locate resolves a single type/variation pair beneath root. Segments that
// are not plain names, missing directories and unusable descriptors all
// yield errors.ErrRouteMiss.
func (s *Scanner) Locate(ctx context.Context, root, componentType, variation string) (Location, error) {
	if !ValidSegment(componentType) || !ValidSegment(variation) ||
		s.skipped(componentType) || s.skipped(variation) {
		return Location{}, errors.ErrRouteMiss
	}

	typePath := filepath.Join(root, componentType)
	info, err := os.Stat(filepath.Join(typePath, variation))
	if err != nil || !info.IsDir() {
		return Location{}, errors.ErrRouteMiss
	}

	loc, err := s.load(ctx, typePath, componentType, variation)
	if err != nil {
		s.logger.Warn(ctx, err, "component located but not loadable", "component", componentType+"/"+variation)
		return Location{}, fmt.Errorf("%w: %v", errors.ErrRouteMiss, err)
	}
	return loc, nil
}

// load reads and reconciles the descriptor of one variation directory.
func (s *Scanner) load(ctx context.Context, typePath, componentType, variation string) (Location, error) {
	dir := filepath.Join(typePath, variation)
	metaPath := filepath.Join(dir, MetaFile)

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return Location{}, errors.NewDiscoveryWarning(dir, "missing "+MetaFile, err)
	}

	def, err := types.ParseDefinition(data)
	if err != nil {
		return Location{}, errors.NewDiscoveryWarning(metaPath, "invalid "+MetaFile, err)
	}

	// Directory names are the identity; the descriptor only fills blanks.
	if def.Type != "" && def.Type != componentType {
		s.logger.Warn(ctx, nil, "descriptor type differs from directory",
			"declared", def.Type, "directory", componentType)
	}
	if def.Variation != "" && def.Variation != variation {
		s.logger.Warn(ctx, nil, "descriptor variation differs from directory",
			"declared", def.Variation, "directory", variation)
	}
	def.Type = componentType
	def.Variation = variation
	if def.DisplayName == "" {
		def.DisplayName = variation
	}

	return Location{
		Type:       componentType,
		Variation:  variation,
		Path:       dir,
		Definition: def,
	}, nil
}

func (s *Scanner) warn(ctx context.Context, result *Result, err error) {
	result.Warnings = append(result.Warnings, err)
	s.logger.Warn(ctx, err, "skipping component directory")
}

func (s *Scanner) skipped(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	_, ok := s.ignore[name]
	return ok
}

// ValidSegment reports whether name is usable as a type or variation.
func ValidSegment(name string) bool {
	return segmentPattern.MatchString(name)
}

// ComponentPathFor resolves the type/variation pair owning changedPath.
// It returns false when the path is not inside a variation directory.
func ComponentPathFor(root, changedPath string) (componentType, variation string, ok bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "", false
	}
	absChanged, err := filepath.Abs(changedPath)
	if err != nil {
		return "", "", false
	}

	rel, err := filepath.Rel(absRoot, absChanged)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", "", false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	if !ValidSegment(parts[0]) || !ValidSegment(parts[1]) ||
		strings.HasPrefix(parts[0], "_") || strings.HasPrefix(parts[1], "_") {
		return "", "", false
	}
	return parts[0], parts[1], true
}

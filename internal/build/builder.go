// Package build compiles discovered components into self-contained
// CompiledComponent values: template source, stylesheet, script and an
// asset manifest, all taken from one snapshot of the component directory.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/scanner"
	"github.com/conneroisu/pagelume/internal/types"
)

// BuildResult is the outcome of building one component.
type BuildResult struct {
	Key       string
	Component *types.CompiledComponent
	Error     error
	Duration  time.Duration
}

// Report collects the results of BuildAll.
type Report struct {
	Results []BuildResult
	// Warnings are the discovery warnings of the underlying scan
	Warnings []error
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []BuildResult {
	var failed []BuildResult
	for _, result := range r.Results {
		if result.Error != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// Builder builds components. Every call produces a fresh
// CompiledComponent; nothing is cached between builds.
type Builder struct {
	assets  *AssetCompiler
	scanner *scanner.Scanner
	metrics *BuildMetrics
	logger  logging.Logger
	workers int
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options, scan *scanner.Scanner, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	if scan == nil {
		scan = scanner.New(scanner.WithLogger(logger))
	}
	metrics := NewBuildMetrics()
	return &Builder{
		assets:  NewAssetCompiler(opts, metrics, logger),
		scanner: scan,
		metrics: metrics,
		logger:  logger.WithComponent("build"),
		workers: runtime.NumCPU(),
	}
}

// Assets returns the builder's asset compiler.
func (b *Builder) Assets() *AssetCompiler {
	return b.assets
}

// Metrics returns the builder's metrics.
func (b *Builder) Metrics() *BuildMetrics {
	return b.metrics
}

// Build compiles the component at loc.
func (b *Builder) Build(ctx context.Context, loc scanner.Location) (*types.CompiledComponent, error) {
	result := b.buildOne(ctx, loc)
	return result.Component, result.Error
}

func (b *Builder) buildOne(ctx context.Context, loc scanner.Location) BuildResult {
	start := time.Now()
	component, err := b.build(ctx, loc)
	result := BuildResult{
		Key:       loc.Key(),
		Component: component,
		Error:     err,
		Duration:  time.Since(start),
	}
	b.metrics.RecordBuild(result)

	if err != nil {
		b.logger.Warn(ctx, err, "component build failed", "component", result.Key)
	} else {
		b.logger.Debug(ctx, "component built", "component", result.Key, "duration", result.Duration)
	}
	return result
}

func (b *Builder) build(ctx context.Context, loc scanner.Location) (*types.CompiledComponent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := loc.Key()

	snap, err := TakeSnapshot(loc.Path)
	if err != nil {
		return nil, errors.NewIOError(loc.Path, err).WithComponent(key)
	}

	if !snap.HasTemplate {
		return nil, errors.NewCompileFailure(key, filepath.Join(loc.Path, TemplateFile),
			fmt.Errorf("missing %s", TemplateFile))
	}

	def, err := definitionFrom(loc, snap)
	if err != nil {
		return nil, err
	}

	styles, err := b.assets.CompileStyles(ctx, key, snap)
	if err != nil {
		return nil, err
	}

	manifest, err := b.assets.CollectAssets(loc.Path)
	if err != nil {
		return nil, err
	}

	return &types.CompiledComponent{
		Definition:     def,
		Location:       loc.Path,
		TemplateSource: string(snap.Template),
		CompiledStyles: styles,
		CompiledScript: b.assets.CompileScript(snap),
		Assets:         manifest,
	}, nil
}

// definitionFrom parses the snapshot's descriptor so the definition and the
// sources come from the same moment. Identity stays with the location.
func definitionFrom(loc scanner.Location, snap *Snapshot) (*types.ComponentDefinition, error) {
	metaPath := filepath.Join(loc.Path, MetaFile)
	if !snap.HasMeta {
		return nil, errors.NewCompileFailure(loc.Key(), metaPath, fmt.Errorf("missing %s", MetaFile))
	}

	def, err := types.ParseDefinition(snap.Meta)
	if err != nil {
		return nil, errors.NewCompileFailure(loc.Key(), metaPath, err)
	}
	def.Type = loc.Type
	def.Variation = loc.Variation
	if def.DisplayName == "" {
		def.DisplayName = loc.Variation
	}
	return def, nil
}

// BuildAll discovers every component beneath root and builds each one. A
// failing component never prevents the others from building; its error is
// carried in its BuildResult.
func (b *Builder) BuildAll(ctx context.Context, root string) (*Report, error) {
	discovered, err := b.scanner.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Results:  make([]BuildResult, len(discovered.Locations)),
		Warnings: discovered.Warnings,
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Results[i] = b.buildOne(ctx, discovered.Locations[i])
			}
		}()
	}

	for i := range discovered.Locations {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	b.logger.Info(ctx, "build complete",
		"components", len(report.Results),
		"failed", len(report.Failed()),
		"warnings", len(report.Warnings))

	return report, nil
}

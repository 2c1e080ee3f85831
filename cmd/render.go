package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pagelume/internal/build"
	"github.com/conneroisu/pagelume/internal/config"
	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/renderer"
	"github.com/conneroisu/pagelume/internal/scanner"
	"github.com/conneroisu/pagelume/internal/types"
)

var renderCmd = &cobra.Command{
	Use:     "render <type>/<variation>",
	Aliases: []string{"r"},
	Short:   "Render one component to standard output",
	Long: `Build and render a single component. Field defaults from meta.json are
used for any value the supplied data does not set.

Examples:
  pagelume render card/basic
  pagelume render card/basic --data '{"title":"Hello"}'
  pagelume render card/basic --data @fixtures/card.json --inline
  pagelume render card/basic --preview`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderFlags   *StandardFlags
	renderPreview bool
	renderInline  bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderFlags = AddStandardFlags(renderCmd, "data")
	renderCmd.Flags().BoolVar(&renderPreview, "preview", false, "Wrap the output in preview chrome")
	renderCmd.Flags().BoolVar(&renderInline, "inline", false, "Inline compiled styles and scripts")
}

// parseComponentKey splits "type/variation".
func parseComponentKey(key string) (componentType, variation string, err error) {
	componentType, variation, ok := strings.Cut(strings.Trim(key, "/"), "/")
	if !ok || !scanner.ValidSegment(componentType) || !scanner.ValidSegment(variation) {
		return "", "", fmt.Errorf("component must be given as <type>/<variation>, got %q", key)
	}
	return componentType, variation, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	componentType, variation, err := parseComponentKey(args[0])
	if err != nil {
		return err
	}
	data, err := renderFlags.ParseData()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	logger := newLogger(cfg, cmd.ErrOrStderr())

	scan := scanner.New(scanner.WithIgnore(cfg.Components.Ignore...), scanner.WithLogger(logger))
	loc, err := scan.Locate(ctx, cfg.Components.Dir, componentType, variation)
	if err != nil {
		return notFoundError(ctx, scan, cfg, componentType+"/"+variation, err)
	}

	builder := build.NewBuilder(build.Options{
		ComponentsRoot:  cfg.Components.Dir,
		GlobalAssetsDir: cfg.Components.GlobalAssetsDir,
		Minify:          cfg.Build.Minify,
		SourceMap:       cfg.Build.SourceMap,
	}, scan, logger)
	component, err := builder.Build(ctx, loc)
	if err != nil {
		return errors.NewEnhancedError("Failed to build "+loc.Key(), err, errors.CompileFailureSuggestions(err))
	}

	for _, violation := range component.Definition.ValidateData(data) {
		logger.Warn(ctx, violation, "render data does not match field declaration", "component", loc.Key())
	}

	rend, err := newRenderer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	html, err := rend.Render(component, types.RenderRequest{
		Data:          data,
		Preview:       renderPreview,
		InlineStyles:  renderInline,
		InlineScripts: renderInline,
	})
	if err != nil {
		return errors.NewEnhancedError("Failed to render "+loc.Key(), err, errors.CompileFailureSuggestions(err))
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
	return err
}

// newRenderer creates a renderer with the configured partials registered.
func newRenderer(ctx context.Context, cfg *config.Config, logger logging.Logger) (*renderer.Renderer, error) {
	rend := renderer.New(renderer.WithLogger(logger))
	if cfg.Components.PartialsDir == "" {
		return rend, nil
	}
	names, err := rend.LoadPartials(ctx, cfg.Components.PartialsDir)
	if err != nil {
		return nil, fmt.Errorf("loading partials: %w", err)
	}
	logger.Debug(ctx, "partials registered", "dir", cfg.Components.PartialsDir, "count", len(names))
	return rend, nil
}

func notFoundError(ctx context.Context, scan *scanner.Scanner, cfg *config.Config, key string, cause error) error {
	var available []string
	if result, err := scan.Discover(ctx, cfg.Components.Dir); err == nil {
		for _, loc := range result.Locations {
			available = append(available, loc.Key())
		}
	}
	return errors.NewEnhancedError(
		fmt.Sprintf("Component '%s' not found", key),
		cause,
		errors.ComponentNotFoundError(key, &errors.SuggestionContext{
			Available:      available,
			ConfigPath:     cfgFile,
			ComponentsRoot: cfg.Components.Dir,
		}),
	)
}

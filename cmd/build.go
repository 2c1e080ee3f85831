package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pagelume/internal/build"
	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/scanner"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Compile every component without serving",
	Long: `Discover and compile every component: parse its descriptor, check its
template and compile its SCSS. Compiled stylesheets are written next to their
sources. One failing component never stops the others from building.

Examples:
  pagelume build                  # Build all components
  pagelume build --minify         # Compress styles and scripts
  pagelume build -o json          # Emit the report as JSON`,
	RunE: runBuild,
}

var buildFlags *StandardFlags

func init() {
	rootCmd.AddCommand(buildCmd)

	buildFlags = AddStandardFlags(buildCmd, "output")
	buildCmd.Flags().Bool("minify", false, "Compress compiled styles and scripts")
	buildCmd.Flags().Bool("source-map", false, "Write source maps next to compiled styles")

	_ = viper.BindPFlag("build.minify", buildCmd.Flags().Lookup("minify"))
	_ = viper.BindPFlag("build.source_map", buildCmd.Flags().Lookup("source-map"))
}

// BuildEntry is the outcome of one component in the build report.
type BuildEntry struct {
	Component string        `json:"component" yaml:"component"`
	Status    string        `json:"status" yaml:"status"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	File      string        `json:"file,omitempty" yaml:"file,omitempty"`
	Line      int           `json:"line,omitempty" yaml:"line,omitempty"`
}

// BuildSummary is the document emitted by build.
type BuildSummary struct {
	Components []BuildEntry          `json:"components" yaml:"components"`
	Warnings   []string              `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Metrics    build.MetricsSnapshot `json:"metrics" yaml:"metrics"`
	Failed     int                   `json:"failed" yaml:"failed"`
}

func newBuildSummary(report *build.Report, metrics build.MetricsSnapshot) BuildSummary {
	summary := BuildSummary{Components: []BuildEntry{}, Metrics: metrics}
	for _, result := range report.Results {
		entry := BuildEntry{
			Component: result.Key,
			Status:    statusBuilt,
			Duration:  result.Duration,
		}
		if result.Error != nil {
			summary.Failed++
			entry.Status = statusFailed
			entry.Error = result.Error.Error()
			var e *errors.Error
			if stderrors.As(result.Error, &e) {
				entry.File = e.File
				entry.Line = e.Line
			}
		}
		summary.Components = append(summary.Components, entry)
	}
	for _, w := range report.Warnings {
		summary.Warnings = append(summary.Warnings, w.Error())
	}
	return summary
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	logger := newLogger(cfg, cmd.ErrOrStderr())
	reportWarnings(ctx, logger, cfg)

	scan := scanner.New(scanner.WithIgnore(cfg.Components.Ignore...), scanner.WithLogger(logger))
	builder := build.NewBuilder(build.Options{
		ComponentsRoot:  cfg.Components.Dir,
		GlobalAssetsDir: cfg.Components.GlobalAssetsDir,
		Minify:          cfg.Build.Minify,
		SourceMap:       cfg.Build.SourceMap,
	}, scan, logger)

	report, err := builder.BuildAll(ctx, cfg.Components.Dir)
	if err != nil {
		return fmt.Errorf("building components: %w", err)
	}
	summary := newBuildSummary(report, builder.Metrics().Snapshot())

	w := cmd.OutOrStdout()
	if buildFlags.OutputFormat != FormatTable {
		if err := writeStructured(w, buildFlags.OutputFormat, summary); err != nil {
			return err
		}
	} else if !buildFlags.Quiet {
		printBuildTable(w, summary)
		for _, failed := range report.Failed() {
			if suggestions := errors.CompileFailureSuggestions(failed.Error); len(suggestions) > 0 {
				fmt.Fprintln(w, errors.FormatSuggestions(styleNoun.Render(failed.Key), suggestions))
			}
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d components failed to build", summary.Failed, len(summary.Components))
	}
	return nil
}

func printBuildTable(w io.Writer, summary BuildSummary) {
	width := 0
	for _, entry := range summary.Components {
		if len(entry.Component) > width {
			width = len(entry.Component)
		}
	}

	for _, entry := range summary.Components {
		line := styleNoun.Render(padRight(entry.Component, width)) + "  " +
			statusStyle(entry.Status).Render(padRight(entry.Status, len(statusFailed))) + "  " +
			styleDim.Render(entry.Duration.Round(time.Microsecond).String())
		fmt.Fprintln(w, line)
		if entry.Error != "" {
			fmt.Fprintln(w, "  "+entry.Error)
		}
	}
	for _, warning := range summary.Warnings {
		fmt.Fprintln(w, styleWarning.Render("warning: "+warning))
	}

	built := len(summary.Components) - summary.Failed
	fmt.Fprintln(w, styleSummary.Render(fmt.Sprintf("%d built, %d failed", built, summary.Failed)))
}

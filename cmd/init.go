package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/scaffolding"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialise a new component project",
	Long: `Lay out a new project: a .pagelume.yml configuration, the components root
and the global assets tree with the runtime scripts, global stylesheet and
shared SCSS partials. Existing files are never overwritten.

Examples:
  pagelume init                   # Initialise the current directory
  pagelume init my-site --example # New directory with a sample component
  pagelume init --force           # Initialise a directory that has files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initForce   bool
	initExample bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Initialise even if the directory is not empty")
	initCmd.Flags().BoolVar(&initExample, "example", false, "Add an example hero/simple component")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log.level")),
		Format: viper.GetString("log.format"),
		Output: cmd.ErrOrStderr(),
	})
	written, err := scaffolding.InitProject(commandContext(cmd), dir, scaffolding.InitOptions{
		Force:   initForce,
		Example: initExample,
	}, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(written) == 0 {
		fmt.Fprintln(out, styleDim.Render("Nothing to do, project already initialised."))
		return nil
	}
	for _, rel := range written {
		fmt.Fprintln(out, "  "+styleNoun.Render(rel))
	}
	fmt.Fprintln(out, styleSummary.Render(fmt.Sprintf("Initialised project in %s", dir)))
	return nil
}

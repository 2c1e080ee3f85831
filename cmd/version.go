package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pagelume/internal/version"
)

var (
	versionFormat  string
	versionShort   bool
	versionVerbose bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for pagelume: the release or development
version, commit, build time, Go version and platform.

Examples:
  pagelume version              # Show version
  pagelume version --short      # Show the one-line version
  pagelume version --verbose    # Also list linked modules
  pagelume version --format json`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "List the modules linked into the binary")
}

// VersionOutput is the document emitted by version --format json|yaml.
type VersionOutput struct {
	version.BuildInfo `yaml:",inline"`
	Release           bool                 `json:"release" yaml:"release"`
	Dependencies      []version.Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.Get()
	w := cmd.OutOrStdout()

	switch versionFormat {
	case FormatJSON, FormatYAML:
		out := VersionOutput{BuildInfo: info, Release: info.IsRelease()}
		if versionVerbose {
			out.Dependencies = version.Dependencies()
		}
		return writeStructured(w, versionFormat, out)
	case "text":
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", versionFormat)
	}

	if versionShort {
		fmt.Fprintln(w, info.Short())
		return nil
	}
	fmt.Fprintln(w, info.String())
	if versionVerbose {
		fmt.Fprintln(w, styleHeader.Render("Modules"))
		for _, dep := range version.Dependencies() {
			fmt.Fprintf(w, "  %s %s\n", dep.Path, styleDim.Render(dep.Version))
		}
	}
	return nil
}

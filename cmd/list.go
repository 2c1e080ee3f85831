package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pagelume/internal/scanner"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List all discovered components",
	Long: `List the components beneath the components root with their metadata.
Directories that could not be loaded are reported as warnings.

Examples:
  pagelume list                   # List all components in table format
  pagelume list -o json           # Output as JSON
  pagelume list --with-fields     # Include field names`,
	RunE: runList,
}

var (
	listFlags      *StandardFlags
	listWithFields bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddStandardFlags(listCmd, "output")
	listCmd.Flags().BoolVar(&listWithFields, "with-fields", false, "Include component field names")
}

// ComponentListing is one entry of the list output.
type ComponentListing struct {
	Key         string   `json:"key" yaml:"key"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Vendors     []string `json:"vendors,omitempty" yaml:"vendors,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Fields      []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// ListOutput is the document emitted by list.
type ListOutput struct {
	Components []ComponentListing `json:"components" yaml:"components"`
	Warnings   []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	logger := newLogger(cfg, cmd.ErrOrStderr())

	scan := scanner.New(scanner.WithIgnore(cfg.Components.Ignore...), scanner.WithLogger(logger))
	result, err := scan.Discover(ctx, cfg.Components.Dir)
	if err != nil {
		return fmt.Errorf("discovering components: %w", err)
	}

	out := ListOutput{Components: []ComponentListing{}}
	for _, loc := range result.Locations {
		def := loc.Definition
		listing := ComponentListing{
			Key:         loc.Key(),
			Name:        def.DisplayName,
			Description: def.Description,
			Vendors:     def.Vendors,
			Tags:        def.Tags,
		}
		if listWithFields {
			for _, f := range def.Fields {
				listing.Fields = append(listing.Fields, f.Name)
			}
		}
		out.Components = append(out.Components, listing)
	}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}

	if listFlags.OutputFormat != FormatTable {
		return writeStructured(cmd.OutOrStdout(), listFlags.OutputFormat, out)
	}
	if !listFlags.Quiet {
		printListTable(cmd.OutOrStdout(), out)
	}
	return nil
}

func printListTable(w io.Writer, out ListOutput) {
	if len(out.Components) == 0 {
		fmt.Fprintln(w, styleDim.Render("No components found."))
	} else {
		width := len("COMPONENT")
		for _, c := range out.Components {
			if len(c.Key) > width {
				width = len(c.Key)
			}
		}
		fmt.Fprintln(w, styleHeader.Render(padRight("COMPONENT", width))+"  "+styleHeader.Render("NAME"))
		for _, c := range out.Components {
			line := styleNoun.Render(padRight(c.Key, width)) + "  " + c.Name
			if len(c.Fields) > 0 {
				line += styleDim.Render(" (" + strings.Join(c.Fields, ", ") + ")")
			}
			fmt.Fprintln(w, line)
		}
	}

	for _, warning := range out.Warnings {
		fmt.Fprintln(w, styleWarning.Render("warning: "+warning))
	}
	fmt.Fprintln(w, styleSummary.Render(fmt.Sprintf("%d components", len(out.Components))))
}

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pagelume/internal/scaffolding"
)

var createCmd = &cobra.Command{
	Use:     "create <type>/<variation>",
	Aliases: []string{"new"},
	Short:   "Create a new component from a template",
	Long: `Create a component directory with meta.json, index.html, a stylesheet and a
script. The template is picked by --template, then by the component type,
then falls back to "default".

Examples:
  pagelume create hero/dark
  pagelume create header/main --vendors gsap,aos
  pagelume create pricing/simple --template default --name "Simple Pricing"
  pagelume create --list-templates`,
	Args: func(cmd *cobra.Command, args []string) error {
		if createListTemplates {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runCreate,
}

var (
	createName          string
	createDescription   string
	createAuthor        string
	createVendors       []string
	createTemplate      string
	createListTemplates bool
)

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVar(&createName, "name", "", "Display name (default derived from the variation)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Component description (markdown)")
	createCmd.Flags().StringVar(&createAuthor, "author", "", "Component author")
	createCmd.Flags().StringSliceVar(&createVendors, "vendors", nil, "Vendor libraries the component needs")
	createCmd.Flags().StringVarP(&createTemplate, "template", "t", "", "Template to start from")
	createCmd.Flags().BoolVar(&createListTemplates, "list-templates", false, "List available templates and exit")
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	logger := newLogger(cfg, cmd.ErrOrStderr())
	gen := scaffolding.NewGenerator(cfg.Components.Dir, cfg.Components.GlobalAssetsDir, logger)

	if createListTemplates {
		printTemplates(cmd.OutOrStdout(), gen.Templates())
		return nil
	}

	componentType, variation, err := parseComponentKey(args[0])
	if err != nil {
		return err
	}
	dir, err := gen.Create(ctx, scaffolding.CreateOptions{
		Type:        componentType,
		Variation:   variation,
		DisplayName: createName,
		Description: createDescription,
		Author:      createAuthor,
		Vendors:     createVendors,
		Template:    createTemplate,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s in %s\n", styleNoun.Render(componentType+"/"+variation), dir)
	fmt.Fprintln(out, styleDim.Render("Preview it with: pagelume serve, then open /preview/"+componentType+"/"+variation))
	for _, rel := range []string{"meta.json", "index.html", "assets/scss/styles.scss", "assets/js/script.js"} {
		fmt.Fprintln(out, "  "+filepath.Join(dir, filepath.FromSlash(rel)))
	}
	return nil
}

func printTemplates(w io.Writer, infos []scaffolding.TemplateInfo) {
	width := len("TEMPLATE")
	for _, info := range infos {
		if len(info.Name) > width {
			width = len(info.Name)
		}
	}
	fmt.Fprintln(w, styleHeader.Render(padRight("TEMPLATE", width))+"  "+styleHeader.Render("DESCRIPTION"))
	for _, info := range infos {
		fmt.Fprintln(w, styleNoun.Render(padRight(info.Name, width))+"  "+info.Description)
	}
}

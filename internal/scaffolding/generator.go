// Package scaffolding creates new components and new projects on disk.
package scaffolding

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/pagelume/internal/config"
	"github.com/conneroisu/pagelume/internal/logging"
	"github.com/conneroisu/pagelume/internal/types"
)

//go:embed all:skeleton
var skeleton embed.FS

// DefaultVersion is the version written into new descriptors.
const DefaultVersion = "1.0.0"

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateName checks a component type or variation name: lowercase
// letters, digits and single hyphens.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name %q must be lowercase letters, digits and hyphens", name)
	}
	return nil
}

// Generator creates components beneath a components root.
type Generator struct {
	componentsRoot  string
	globalAssetsDir string
	templates       map[string]ComponentTemplate
	logger          logging.Logger
}

// NewGenerator creates a generator. globalAssetsDir decides whether new
// stylesheets import the shared SCSS partials.
func NewGenerator(componentsRoot, globalAssetsDir string, logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		componentsRoot:  componentsRoot,
		globalAssetsDir: globalAssetsDir,
		templates:       GetBuiltinTemplates(),
		logger:          logger.WithComponent("scaffolding"),
	}
}

// CreateOptions describes a new component.
type CreateOptions struct {
	Type        string
	Variation   string
	DisplayName string
	Description string
	Author      string
	Vendors     []string
	// Template names a built-in template; empty picks one by Type
	Template string
}

// TemplateInfo summarises a template for listings.
type TemplateInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Fields      int    `json:"fields" yaml:"fields"`
}

// Templates lists the available templates sorted by name.
func (g *Generator) Templates() []TemplateInfo {
	infos := make([]TemplateInfo, 0, len(g.templates))
	for name, tmpl := range g.templates {
		infos = append(infos, TemplateInfo{Name: name, Description: tmpl.Description, Fields: len(tmpl.Fields)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// AddTemplate registers or replaces a template.
func (g *Generator) AddTemplate(tmpl ComponentTemplate) {
	g.templates[tmpl.Name] = tmpl
}

func (g *Generator) template(opts CreateOptions) (ComponentTemplate, error) {
	if opts.Template != "" {
		tmpl, ok := g.templates[opts.Template]
		if !ok {
			return ComponentTemplate{}, fmt.Errorf("template '%s' not found", opts.Template)
		}
		return tmpl, nil
	}
	if tmpl, ok := g.templates[opts.Type]; ok {
		return tmpl, nil
	}
	return g.templates["default"], nil
}

// Create writes the descriptor, template, stylesheet and script of a new
// component and returns its directory. An existing component is never
// overwritten.
func (g *Generator) Create(ctx context.Context, opts CreateOptions) (string, error) {
	if err := ValidateName(opts.Type); err != nil {
		return "", fmt.Errorf("component type: %w", err)
	}
	if err := ValidateName(opts.Variation); err != nil {
		return "", fmt.Errorf("component variation: %w", err)
	}
	tmpl, err := g.template(opts)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(g.componentsRoot, opts.Type, opts.Variation)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("component %s/%s already exists", opts.Type, opts.Variation)
	}

	tctx := TemplateContext{
		Type:          opts.Type,
		Variation:     opts.Variation,
		Class:         opts.Variation + "-" + opts.Type,
		GlobalImports: g.hasGlobalPartials(),
	}
	if len(opts.Vendors) > 0 {
		tctx.VendorsAttr = fmt.Sprintf(` data-pagelume-vendors="%s"`, strings.Join(opts.Vendors, ","))
	}

	files := map[string]string{}
	for rel, src := range map[string]string{
		"index.html":              tmpl.HTML,
		"assets/scss/styles.scss": tmpl.SCSS,
		"assets/js/script.js":     tmpl.Script,
	} {
		out, err := execute(rel, src, tctx)
		if err != nil {
			return "", err
		}
		files[rel] = out
	}

	meta, err := json.MarshalIndent(g.definition(opts, tmpl), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding meta.json: %w", err)
	}
	files["meta.json"] = string(meta) + "\n"

	for _, sub := range []string{"assets/css", "assets/scss", "assets/js", "assets/img"} {
		if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(sub)), 0o755); err != nil {
			return "", fmt.Errorf("failed to create component directory: %w", err)
		}
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(rel)), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}

	g.logger.Info(ctx, "component created", "component", opts.Type+"/"+opts.Variation, "template", tmpl.Name)
	return dir, nil
}

func (g *Generator) definition(opts CreateOptions, tmpl ComponentTemplate) *types.ComponentDefinition {
	name := opts.DisplayName
	if name == "" {
		name = displayName(opts.Variation)
	}
	return &types.ComponentDefinition{
		DisplayName: name,
		Type:        opts.Type,
		Variation:   opts.Variation,
		Description: opts.Description,
		VersionTag:  DefaultVersion,
		Author:      opts.Author,
		Vendors:     opts.Vendors,
		Fields:      tmpl.Fields,
	}
}

func (g *Generator) hasGlobalPartials() bool {
	if g.globalAssetsDir == "" {
		return false
	}
	for _, name := range []string{"_variables.scss", "_mixins.scss"} {
		if _, err := os.Stat(filepath.Join(g.globalAssetsDir, "scss", name)); err != nil {
			return false
		}
	}
	return true
}

// displayName turns "dark-header" into "Dark Header".
func displayName(variation string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(variation, "-", " "))
}

func execute(name, src string, ctx TemplateContext) (string, error) {
	t, err := template.New(name).Delims("[[", "]]").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("executing %s template: %w", name, err)
	}
	return buf.String(), nil
}

// InitOptions describes a new project.
type InitOptions struct {
	// Force allows initialising a directory that already has files
	Force bool
	// Example adds a sample hero component
	Example bool
}

const gitignore = `node_modules/
dist/
*.css.map
.DS_Store
*.log
`

// InitProject lays out a new project in dir: a configuration file, the
// components root and the global assets tree. Existing files are kept.
// It returns the paths it wrote, relative to dir.
func InitProject(ctx context.Context, dir string, opts InitOptions, logger logging.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if !opts.Force {
		entries, err := os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), ".") {
				return nil, fmt.Errorf("directory %s is not empty", dir)
			}
		}
	}

	cfg, err := defaultConfig()
	if err != nil {
		return nil, err
	}
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}

	var written []string
	write := func(rel string, data []byte) error {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if _, err := os.Stat(path); err == nil {
			logger.Debug(ctx, "keeping existing file", "path", rel)
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	}

	if err := write(".pagelume.yml", cfgYAML); err != nil {
		return nil, err
	}
	if err := write(".gitignore", []byte(gitignore)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, cfg.Components.Dir), 0o755); err != nil {
		return nil, err
	}

	err = fs.WalkDir(skeleton, "skeleton/global-assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := skeleton.ReadFile(path)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(path, "skeleton/global-assets/")
		return write(cfg.Components.GlobalAssetsDir+"/"+rel, data)
	})
	if err != nil {
		return nil, fmt.Errorf("writing global assets: %w", err)
	}

	if opts.Example {
		gen := NewGenerator(
			filepath.Join(dir, cfg.Components.Dir),
			filepath.Join(dir, cfg.Components.GlobalAssetsDir),
			logger,
		)
		if _, err := os.Stat(filepath.Join(dir, cfg.Components.Dir, "hero", "simple")); os.IsNotExist(err) {
			if _, err := gen.Create(ctx, CreateOptions{
				Type:        "hero",
				Variation:   "simple",
				Description: "A starting point. Edit `index.html` and `assets/scss/styles.scss`.",
			}); err != nil {
				return nil, err
			}
			written = append(written, cfg.Components.Dir+"/hero/simple/")
		}
	}

	sort.Strings(written)
	logger.Info(ctx, "project initialised", "dir", dir, "files", len(written))
	return written, nil
}

func defaultConfig() (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	return config.LoadFrom(v)
}

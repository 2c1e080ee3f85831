// Package types provides the component data model shared by the scanner,
// builder, renderer and preview server. It lives in its own package to
// avoid import cycles between them.
package types

import (
	"encoding/json"
	"fmt"
	"path"
)

// ComponentDefinition is the declared shape of one type/variation pair,
// parsed from the component's meta.json descriptor.
type ComponentDefinition struct {
	// DisplayName is the human-readable component name ("name" in meta.json)
	DisplayName string `json:"name"`
	// Type is the component type, e.g. "header"
	Type string `json:"type"`
	// Variation names one instance of the type, e.g. "dark-header"
	Variation string `json:"variation"`
	// Description is optional free text, rendered as Markdown in the gallery
	Description string `json:"description,omitempty"`
	// VersionTag is the descriptor's "version"
	VersionTag string `json:"version,omitempty"`
	Author     string `json:"author,omitempty"`
	// Vendors lists third-party bundles, passed opaquely to the vendor loader
	Vendors []string `json:"vendors,omitempty"`
	// Fields are the component's typed input slots
	Fields []Field  `json:"fields"`
	Tags   []string `json:"tags,omitempty"`
	// Preview holds optional sizing hints for the preview chrome
	Preview *PreviewHints `json:"preview,omitempty"`
}

// PreviewHints constrain the preview chrome.
type PreviewHints struct {
	Width      int  `json:"width,omitempty"`
	Height     int  `json:"height,omitempty"`
	Responsive bool `json:"responsive,omitempty"`
}

// Key returns the identity of the component as "type/variation".
func (d *ComponentDefinition) Key() string {
	return path.Join(d.Type, d.Variation)
}

// Field looks up a field by name.
func (d *ComponentDefinition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns the declared default of every field that has one.
func (d *ComponentDefinition) Defaults() map[string]interface{} {
	defaults := make(map[string]interface{}, len(d.Fields))
	for _, f := range d.Fields {
		if f.HasDefault {
			defaults[f.Name] = f.Default
		}
	}
	return defaults
}

// Validate checks the structural invariants of a parsed descriptor.
func (d *ComponentDefinition) Validate() error {
	seen := make(map[string]struct{}, len(d.Fields))
	for i, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// ValidateData checks supplied data against every declared field and
// returns one error per violation. It never mutates data.
func (d *ComponentDefinition) ValidateData(data map[string]interface{}) []error {
	var errs []error
	for _, f := range d.Fields {
		value, present := data[f.Name]
		if !present {
			if f.Required && !f.HasDefault {
				errs = append(errs, fmt.Errorf("field %q is required", f.Name))
			}
			continue
		}
		if err := f.Check(value); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ParseDefinition decodes a meta.json document.
func ParseDefinition(data []byte) (*ComponentDefinition, error) {
	var def ComponentDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing meta.json: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid meta.json: %w", err)
	}
	return &def, nil
}

// AssetManifest lists auxiliary asset files relative to the component's
// assets directory.
type AssetManifest struct {
	CSS    []string `json:"css"`
	JS     []string `json:"js"`
	Images []string `json:"images"`
}

// CompiledComponent is the output of one build. It is never shared between
// builds.
type CompiledComponent struct {
	Definition     *ComponentDefinition
	Location       string
	TemplateSource string
	CompiledStyles string
	CompiledScript string
	Assets         AssetManifest
}

// Key returns the component identity.
func (c *CompiledComponent) Key() string {
	return c.Definition.Key()
}

// RenderRequest carries the data and mode flags of one render call.
type RenderRequest struct {
	Data          map[string]interface{}
	Preview       bool
	InlineStyles  bool
	InlineScripts bool
}

// WatchEvent is raised when a file under the components root changes.
type WatchEvent struct {
	// ChangedPath is the path reported by the filesystem watcher
	ChangedPath string
	// Type and Variation identify the affected component
	Type      string
	Variation string
	// ComponentPath is the component directory, components root included
	ComponentPath string
	// Op is the change kind: created, modified, deleted or renamed
	Op string
}

package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Recognized plugin identifiers.
const (
	PluginSearch = "search"
	PluginAPIRef = "apiref"
)

// Plugins is the ordered list of enabled build plugins with their decoded
// options. Plugins run as build stages in declaration order.
type Plugins struct {
	entries []string

	Search *SearchOptions
	APIRef *APIRefOptions
}

// SearchOptions configures the full-text search plugin.
type SearchOptions struct {
	// IndexDB is the path of the SQLite FTS index, relative to the
	// configuration directory. The JSON index is always written as
	// search_index.json.
	IndexDB string `yaml:"index_db"`
}

// APIRefOptions configures API-reference generation from Go source.
type APIRefOptions struct {
	// Paths are the source directories to document; they are also watched
	// for changes in daemon mode.
	Paths []string `yaml:"paths"`

	// Section is the output directory for generated reference pages,
	// relative to the site root.
	Section string `yaml:"section"`

	ShowRootHeading  bool `yaml:"show_root_heading"`
	ShowSource       bool `yaml:"show_source"`
	ShowRootFullPath bool `yaml:"show_root_full_path"`
}

// Names returns the plugin identifiers in declaration order.
func (p Plugins) Names() []string { return p.entries }

// Enabled reports whether the named plugin was declared.
func (p Plugins) Enabled(name string) bool {
	for _, n := range p.entries {
		if n == name {
			return true
		}
	}
	return false
}

// UnmarshalYAML decodes the sequence of plugin identifiers, each optionally
// carrying nested options.
func (p *Plugins) UnmarshalYAML(value *yaml.Node) error {
	entries, err := decodeOptionList(value, "plugins")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		p.entries = append(p.entries, entry.Name)
		switch entry.Name {
		case PluginSearch:
			p.Search = &SearchOptions{}
			if err := entry.decodeOptions(p.Search); err != nil {
				return err
			}
			if p.Search.IndexDB == "" {
				p.Search.IndexDB = "search_index.db"
			}
		case PluginAPIRef:
			p.APIRef = &APIRefOptions{}
			if err := entry.decodeOptions(p.APIRef); err != nil {
				return err
			}
			if p.APIRef.Section == "" {
				p.APIRef.Section = "reference"
			}
		default:
			return fmt.Errorf("unrecognized plugin: %q", entry.Name)
		}
	}
	return nil
}

// MarshalYAML re-emits identifiers in declaration order.
func (p Plugins) MarshalYAML() (any, error) {
	out := make([]any, 0, len(p.entries))
	for _, name := range p.entries {
		if name == PluginAPIRef && p.APIRef != nil && len(p.APIRef.Paths) > 0 {
			out = append(out, map[string]*APIRefOptions{name: p.APIRef})
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

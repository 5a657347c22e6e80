package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Recognized markdown extension identifiers.
const (
	ExtTOC          = "toc"
	ExtHighlight    = "highlight"
	ExtInlineHilite = "inlinehilite"
	ExtSnippets     = "snippets"
	ExtSuperfences  = "superfences"
)

// Extensions is the ordered list of enabled markdown extensions with their
// decoded options.
type Extensions struct {
	entries []string

	TOC          *TOCOptions
	Highlight    *HighlightOptions
	InlineHilite bool
	Snippets     *SnippetsOptions
	Superfences  *SuperfencesOptions
}

// TOCOptions configures the table-of-contents extension.
type TOCOptions struct {
	Permalink       bool   `yaml:"permalink"`
	PermalinkSymbol string `yaml:"permalink_symbol"`
}

// HighlightOptions configures fenced code block rendering.
type HighlightOptions struct {
	AnchorLinenums bool `yaml:"anchor_linenums"`
	LineNums       bool `yaml:"linenums"`
}

// SnippetsOptions configures `--8<--` file inclusion.
type SnippetsOptions struct {
	BasePath string `yaml:"base_path"`
}

// SuperfencesOptions configures extended fenced code blocks.
type SuperfencesOptions struct {
	CustomFences []CustomFence `yaml:"custom_fences"`
}

// CustomFence maps a fence language to a rendered element class
// (e.g. name "mermaid" -> <pre class="mermaid">).
type CustomFence struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class"`
}

// Names returns the extension identifiers in declaration order.
func (e Extensions) Names() []string { return e.entries }

// Enabled reports whether the named extension was declared.
func (e Extensions) Enabled(name string) bool {
	for _, n := range e.entries {
		if n == name {
			return true
		}
	}
	return false
}

// UnmarshalYAML decodes the mkdocs-style sequence of identifiers, each
// optionally carrying nested options:
//
//	markdown_extensions:
//	  - toc:
//	      permalink: true
//	  - inlinehilite
func (e *Extensions) UnmarshalYAML(value *yaml.Node) error {
	entries, err := decodeOptionList(value, "markdown_extensions")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		e.entries = append(e.entries, entry.Name)
		switch entry.Name {
		case ExtTOC:
			e.TOC = &TOCOptions{}
			if err := entry.decodeOptions(e.TOC); err != nil {
				return err
			}
			if e.TOC.PermalinkSymbol == "" {
				e.TOC.PermalinkSymbol = "¶"
			}
		case ExtHighlight:
			e.Highlight = &HighlightOptions{}
			if err := entry.decodeOptions(e.Highlight); err != nil {
				return err
			}
		case ExtInlineHilite:
			e.InlineHilite = true
			if err := entry.rejectOptions(); err != nil {
				return err
			}
		case ExtSnippets:
			e.Snippets = &SnippetsOptions{}
			if err := entry.decodeOptions(e.Snippets); err != nil {
				return err
			}
		case ExtSuperfences:
			e.Superfences = &SuperfencesOptions{}
			if err := entry.decodeOptions(e.Superfences); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unrecognized markdown extension: %q", entry.Name)
		}
	}
	return nil
}

// MarshalYAML re-emits identifiers in declaration order (options elided for
// extensions whose options are zero-valued).
func (e Extensions) MarshalYAML() (any, error) {
	out := make([]any, 0, len(e.entries))
	for _, name := range e.entries {
		switch name {
		case ExtTOC:
			if e.TOC != nil && e.TOC.Permalink {
				out = append(out, map[string]*TOCOptions{name: e.TOC})
				continue
			}
		case ExtHighlight:
			if e.Highlight != nil && (e.Highlight.AnchorLinenums || e.Highlight.LineNums) {
				out = append(out, map[string]*HighlightOptions{name: e.Highlight})
				continue
			}
		case ExtSnippets:
			if e.Snippets != nil && e.Snippets.BasePath != "" {
				out = append(out, map[string]*SnippetsOptions{name: e.Snippets})
				continue
			}
		case ExtSuperfences:
			if e.Superfences != nil && len(e.Superfences.CustomFences) > 0 {
				out = append(out, map[string]*SuperfencesOptions{name: e.Superfences})
				continue
			}
		}
		out = append(out, name)
	}
	return out, nil
}

// optionEntry is one element of an identifier-with-options sequence.
type optionEntry struct {
	Name    string
	options *yaml.Node
}

func (o optionEntry) decodeOptions(into any) error {
	if o.options == nil {
		return nil
	}
	if err := o.options.Decode(into); err != nil {
		return fmt.Errorf("invalid options for %q: %w", o.Name, err)
	}
	return nil
}

func (o optionEntry) rejectOptions() error {
	if o.options != nil {
		return fmt.Errorf("%q takes no options", o.Name)
	}
	return nil
}

// decodeOptionList decodes a sequence whose elements are either a bare
// identifier scalar or a single-key mapping of identifier to options.
func decodeOptionList(value *yaml.Node, field string) ([]optionEntry, error) {
	if value.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s must be a list (line %d)", field, value.Line)
	}

	entries := make([]optionEntry, 0, len(value.Content))
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			var name string
			if err := item.Decode(&name); err != nil {
				return nil, err
			}
			entries = append(entries, optionEntry{Name: name})
		case yaml.MappingNode:
			if len(item.Content) != 2 {
				return nil, fmt.Errorf("%s entry must have exactly one key (line %d)", field, item.Line)
			}
			var name string
			if err := item.Content[0].Decode(&name); err != nil {
				return nil, err
			}
			opts := item.Content[1]
			if opts.Kind == yaml.ScalarNode && opts.Tag == "!!null" {
				opts = nil
			}
			entries = append(entries, optionEntry{Name: name, options: opts})
		default:
			return nil, fmt.Errorf("invalid %s entry (line %d)", field, item.Line)
		}
	}
	return entries, nil
}

package config

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Nav is the ordered site navigation. Order is significant and preserved
// exactly as declared in the configuration file.
type Nav []NavItem

// NavItem is a single navigation entry: either a page (Path set) or a
// section (Children set). Title is the human-readable label.
type NavItem struct {
	Title    string
	Path     string
	Children Nav
}

// IsSection reports whether the item groups child entries instead of
// referencing a page directly.
func (n NavItem) IsSection() bool { return len(n.Children) > 0 }

// UnmarshalYAML decodes the three accepted entry shapes:
//
//	- path.md                  (bare path, title derived from filename)
//	- Label: path.md           (titled page)
//	- Label:                   (section)
//	    - ...nested entries
func (n *NavItem) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var p string
		if err := value.Decode(&p); err != nil {
			return err
		}
		n.Path = p
		n.Title = titleFromPath(p)
		return nil

	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("nav entry must have exactly one key (line %d)", value.Line)
		}
		keyNode, valNode := value.Content[0], value.Content[1]
		if err := keyNode.Decode(&n.Title); err != nil {
			return err
		}
		switch valNode.Kind {
		case yaml.ScalarNode:
			return valNode.Decode(&n.Path)
		case yaml.SequenceNode:
			return valNode.Decode(&n.Children)
		default:
			return fmt.Errorf("nav entry %q must map to a path or a list (line %d)", n.Title, valNode.Line)
		}

	default:
		return fmt.Errorf("invalid nav entry (line %d)", value.Line)
	}
}

// MarshalYAML emits the compact `Label: path` / `Label: [children]` forms.
func (n NavItem) MarshalYAML() (any, error) {
	if n.IsSection() {
		return map[string]Nav{n.Title: n.Children}, nil
	}
	return map[string]string{n.Title: n.Path}, nil
}

// Pages returns all page paths in declaration order, descending into
// sections depth-first.
func (nav Nav) Pages() []string {
	var out []string
	for _, item := range nav {
		if item.IsSection() {
			out = append(out, item.Children.Pages()...)
			continue
		}
		if item.Path != "" {
			out = append(out, item.Path)
		}
	}
	return out
}

// Walk visits every item in declaration order. Sections are visited before
// their children.
func (nav Nav) Walk(fn func(item NavItem, depth int)) {
	nav.walk(fn, 0)
}

func (nav Nav) walk(fn func(item NavItem, depth int), depth int) {
	for _, item := range nav {
		fn(item, depth)
		if item.IsSection() {
			item.Children.walk(fn, depth+1)
		}
	}
}

func titleFromPath(p string) string {
	base := strings.TrimSuffix(path.Base(p), path.Ext(p))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	if base == "" {
		return p
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

// Package theme defines the pluggable theme abstraction and its registry.
// Built-in themes live in subpackages and register via their own init().
package theme

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sort"
	"sync"

	"github.com/torn-open/docsmith/internal/markdown"
)

// Features declares what a theme's layout supports.
type Features struct {
	SearchBox  bool
	TOCSidebar bool
}

// NavEntry is one rendered navigation item.
type NavEntry struct {
	Title    string
	URL      string // empty for section headers without a page
	Active   bool
	Children []NavEntry

	// TOC holds the page headings on the active entry, so themes that fold
	// the local TOC into the navigation can render it in place.
	TOC []markdown.Heading
}

// PageData is the template input for one rendered page.
type PageData struct {
	SiteName        string
	SiteDescription string
	Title           string
	Content         template.HTML
	TOC             []markdown.Heading
	Nav             []NavEntry
	URL             string

	// SearchEnabled is true when the search plugin runs and the theme
	// declares a search box.
	SearchEnabled bool

	// LiveReload injects the reload client script; set by serve, never by
	// a plain build.
	LiveReload bool
}

// Theme renders pages and carries its own static assets.
type Theme interface {
	Name() string
	Features() Features
	RenderPage(w io.Writer, data PageData) error

	// Static returns the assets to copy under assets/ in the site output,
	// or nil when the theme ships none.
	Static() fs.FS
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Theme{}
)

// Register adds a Theme implementation. Duplicate names are ignored.
func Register(t Theme) {
	if t == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[t.Name()]; exists {
		return
	}
	registry[t.Name()] = t
}

// Get returns the named theme.
func Get(name string) (Theme, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown theme %q (registered: %v)", name, names())
	}
	return t, nil
}

// IsRegistered reports whether a theme name is known. Config validation
// uses this without needing the theme itself.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Names lists the registered themes, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return names()
}

func names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MustParse parses a theme's embedded template set; themes call it from
// package init, so a broken template fails fast.
func MustParse(files fs.FS, patterns ...string) *template.Template {
	return template.Must(template.ParseFS(files, patterns...))
}

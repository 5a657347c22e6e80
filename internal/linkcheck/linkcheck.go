// Package linkcheck verifies internal links and anchors in a built site.
package linkcheck

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"

	derrors "github.com/torn-open/docsmith/internal/errors"
)

// Issue is one broken internal reference.
type Issue struct {
	Page   string // page file relative to the site root
	Link   string // the offending href/src as written
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Page, i.Link, i.Reason)
}

// page is one parsed HTML document.
type page struct {
	relPath string
	ids     map[string]bool
	links   []string
}

// CheckSite parses every HTML file under siteDir and verifies that internal
// links resolve to existing files and that fragment targets exist. External
// URLs are not contacted.
func CheckSite(siteDir string) ([]Issue, error) {
	pages := map[string]*page{} // keyed by output path, slash separated
	files := map[string]bool{}  // every file in the site

	err := filepath.WalkDir(siteDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(siteDir, p)
		if err != nil {
			return err
		}
		relPath := filepath.ToSlash(rel)
		files[relPath] = true

		if !strings.HasSuffix(relPath, ".html") {
			return nil
		}
		pg, err := parsePage(p, relPath)
		if err != nil {
			return err
		}
		pages[relPath] = pg
		return nil
	})
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryFileSystem, "walk site directory")
	}

	var issues []Issue
	for _, pg := range sortedPages(pages) {
		for _, link := range pg.links {
			if issue := verify(pg, link, files, pages); issue != nil {
				issues = append(issues, *issue)
			}
		}
	}
	return issues, nil
}

func sortedPages(pages map[string]*page) []*page {
	keys := make([]string, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*page, 0, len(keys))
	for _, k := range keys {
		out = append(out, pages[k])
	}
	return out
}

func parsePage(fullPath, relPath string) (*page, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}

	pg := &page{relPath: relPath, ids: map[string]bool{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				switch attr.Key {
				case "id":
					pg.ids[attr.Val] = true
				case "href", "src":
					if attr.Val != "" {
						pg.links = append(pg.links, attr.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return pg, nil
}

// verify resolves one link against the site. Returns nil when the link is
// external or valid.
func verify(pg *page, link string, files map[string]bool, pages map[string]*page) *Issue {
	if isExternal(link) {
		return nil
	}

	target, fragment := splitFragment(link)

	// Pure fragment: anchor on the same page.
	if target == "" {
		if fragment != "" && !pg.ids[fragment] {
			return &Issue{Page: pg.relPath, Link: link, Reason: "missing anchor"}
		}
		return nil
	}

	resolved := resolveTarget(pg.relPath, target)
	if !files[resolved] {
		return &Issue{Page: pg.relPath, Link: link, Reason: "missing target"}
	}

	if fragment != "" {
		targetPage, ok := pages[resolved]
		if !ok {
			return &Issue{Page: pg.relPath, Link: link, Reason: "fragment on non-HTML target"}
		}
		if !targetPage.ids[fragment] {
			return &Issue{Page: pg.relPath, Link: link, Reason: "missing anchor"}
		}
	}
	return nil
}

// resolveTarget maps a link target to an output file path. Directory URLs
// resolve to their index.html.
func resolveTarget(fromPage, target string) string {
	var resolved string
	if strings.HasPrefix(target, "/") {
		resolved = path.Clean(strings.TrimPrefix(target, "/"))
	} else {
		resolved = path.Clean(path.Join(path.Dir(fromPage), target))
	}
	if resolved == "." || resolved == "" {
		return "index.html"
	}
	if strings.HasSuffix(target, "/") || path.Ext(resolved) == "" {
		return path.Join(resolved, "index.html")
	}
	return resolved
}

func isExternal(link string) bool {
	return strings.Contains(link, "://") ||
		strings.HasPrefix(link, "mailto:") ||
		strings.HasPrefix(link, "tel:") ||
		strings.HasPrefix(link, "//") ||
		strings.HasPrefix(link, "data:")
}

func splitFragment(link string) (string, string) {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		return link[:i], link[i+1:]
	}
	return link, ""
}

package site

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/torn-open/docsmith/internal/config"
	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/logfields"
)

// discover walks the docs directory collecting pages and assets. Pages come
// back nav-first: declaration order for pages the nav lists, then the rest
// alphabetically. Page content is loaded here; the render stage works from
// memory.
func discover(docsDir string, nav config.Nav, readFile func(string) ([]byte, error)) ([]*Page, []Asset, error) {
	var pages []*Page
	var assets []Asset

	err := filepath.WalkDir(docsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != docsDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(docsDir, p)
		if err != nil {
			return err
		}
		relPath := filepath.ToSlash(rel)

		if !strings.HasSuffix(name, ".md") {
			assets = append(assets, Asset{SourcePath: relPath, AbsPath: p})
			return nil
		}

		content, err := readFile(p)
		if err != nil {
			return err
		}
		page, err := newPage(relPath, p, content)
		if err != nil {
			slog.Warn("Skipping page with invalid frontmatter", logfields.Path(relPath), logfields.Error(err))
			return nil
		}
		if page.Meta.Hidden {
			slog.Debug("Skipping hidden page", logfields.Path(relPath))
			return nil
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, nil, derrors.Wrap(err, derrors.CategoryFileSystem, "walk docs directory")
	}

	orderPages(pages, nav)
	sort.Slice(assets, func(i, j int) bool { return assets[i].SourcePath < assets[j].SourcePath })
	return pages, assets, nil
}

// orderPages sorts nav-listed pages into declaration order ahead of the
// rest, and records their nav labels.
func orderPages(pages []*Page, nav config.Nav) {
	navOrder := map[string]int{}
	for i, p := range nav.Pages() {
		navOrder[filepath.ToSlash(p)] = i
	}
	navTitle := map[string]string{}
	nav.Walk(func(item config.NavItem, _ int) {
		if !item.IsSection() && item.Path != "" {
			navTitle[filepath.ToSlash(item.Path)] = item.Title
		}
	})

	for _, p := range pages {
		if t, ok := navTitle[p.SourcePath]; ok {
			p.NavTitle = t
		}
	}

	sort.SliceStable(pages, func(i, j int) bool {
		oi, inNavI := navOrder[pages[i].SourcePath]
		oj, inNavJ := navOrder[pages[j].SourcePath]
		switch {
		case inNavI && inNavJ:
			return oi < oj
		case inNavI:
			return true
		case inNavJ:
			return false
		default:
			return pages[i].SourcePath < pages[j].SourcePath
		}
	})
}

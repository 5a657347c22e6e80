package site

import (
	"path/filepath"

	"github.com/torn-open/docsmith/internal/config"
	"github.com/torn-open/docsmith/internal/markdown"
	"github.com/torn-open/docsmith/internal/theme"
)

// buildNav converts the configured navigation into theme entries for one
// page, marking the active entry and attaching the page's headings to it.
func buildNav(nav config.Nav, active *Page) []theme.NavEntry {
	return buildNavLevel(nav, active)
}

func buildNavLevel(nav config.Nav, active *Page) []theme.NavEntry {
	var out []theme.NavEntry
	for _, item := range nav {
		if item.IsSection() {
			entry := theme.NavEntry{
				Title:    item.Title,
				Children: buildNavLevel(item.Children, active),
			}
			for _, c := range entry.Children {
				if c.Active || hasActiveChild(c) {
					entry.Active = true
					break
				}
			}
			out = append(out, entry)
			continue
		}

		url := markdown.PageURL(filepath.ToSlash(item.Path))
		entry := theme.NavEntry{Title: item.Title, URL: url}
		if active != nil && url == active.URL {
			entry.Active = true
			entry.TOC = active.TOC
		}
		out = append(out, entry)
	}
	return out
}

func hasActiveChild(e theme.NavEntry) bool {
	for _, c := range e.Children {
		if c.Active || hasActiveChild(c) {
			return true
		}
	}
	return false
}

// Package site turns a configured docs tree into a static site through a
// staged build pipeline.
package site

import (
	"path"
	"strings"

	"github.com/torn-open/docsmith/internal/frontmatter"
	"github.com/torn-open/docsmith/internal/markdown"
)

// Page is one documentation page flowing through the build.
type Page struct {
	SourcePath string // relative to the docs dir, slash separated
	AbsPath    string // absolute source path; empty for generated pages
	URL        string
	OutputPath string // relative to the site output dir
	NavTitle   string // label from the nav, when the page is listed

	Meta frontmatter.Meta
	Body []byte // markdown body, frontmatter stripped

	// Populated by the render stage.
	Title string
	HTML  []byte
	TOC   []markdown.Heading

	// Generated pages come from plugins (API reference), not from files.
	Generated bool
}

// Asset is a non-markdown file copied through to the output.
type Asset struct {
	SourcePath string // relative to the docs dir, slash separated
	AbsPath    string
}

// newPage builds a Page from raw file content, splitting frontmatter and
// deriving URL and output location.
func newPage(relPath, absPath string, content []byte) (*Page, error) {
	meta, body, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}
	return &Page{
		SourcePath: relPath,
		AbsPath:    absPath,
		URL:        markdown.PageURL(relPath),
		OutputPath: markdown.OutputPath(relPath),
		Meta:       meta,
		Body:       body,
	}, nil
}

// resolveTitle picks the page title: frontmatter wins, then the first H1,
// then the nav label, then the filename.
func (p *Page) resolveTitle(renderedTitle string) string {
	switch {
	case p.Meta.Title != "":
		return p.Meta.Title
	case renderedTitle != "":
		return renderedTitle
	case p.NavTitle != "":
		return p.NavTitle
	default:
		return titleFromFilename(p.SourcePath)
	}
}

func titleFromFilename(relPath string) string {
	base := strings.TrimSuffix(path.Base(relPath), ".md")
	if base == "index" {
		if dir := path.Base(path.Dir(relPath)); dir != "." && dir != "/" {
			base = dir
		} else {
			base = "Home"
		}
	}
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	if base == "" {
		return base
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

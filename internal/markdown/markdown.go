// Package markdown renders documentation pages to HTML with goldmark,
// honoring the markdown_extensions declared in the site configuration.
package markdown

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/torn-open/docsmith/internal/config"
)

// TOCOptions mirrors the toc extension configuration.
type TOCOptions struct {
	Permalink       bool
	PermalinkSymbol string
}

// HighlightOptions mirrors the highlight extension configuration.
type HighlightOptions struct {
	AnchorLinenums bool
	LineNums       bool
}

// CustomFence maps a fence language to a rendered element class.
type CustomFence struct {
	Name  string
	Class string
}

// Options selects the rendering features for a site build.
type Options struct {
	TOC          *TOCOptions
	Highlight    *HighlightOptions
	InlineHilite bool
	Superfences  bool
	CustomFences []CustomFence

	// SnippetsBase is the directory `--8<--` includes resolve against.
	// Empty disables snippet expansion.
	SnippetsBase string
}

// OptionsFromConfig converts the declared markdown_extensions into renderer
// options. docsDir anchors snippet includes unless the extension declares
// its own base_path.
func OptionsFromConfig(ext config.Extensions, docsDir string) Options {
	var opts Options
	if ext.TOC != nil {
		opts.TOC = &TOCOptions{Permalink: ext.TOC.Permalink, PermalinkSymbol: ext.TOC.PermalinkSymbol}
	}
	if ext.Highlight != nil {
		opts.Highlight = &HighlightOptions{AnchorLinenums: ext.Highlight.AnchorLinenums, LineNums: ext.Highlight.LineNums}
	}
	opts.InlineHilite = ext.InlineHilite
	if ext.Snippets != nil {
		base := ext.Snippets.BasePath
		if base == "" {
			base = docsDir
		} else if !filepath.IsAbs(base) {
			base = filepath.Join(docsDir, base)
		}
		opts.SnippetsBase = base
	}
	if ext.Superfences != nil {
		opts.Superfences = true
		for _, f := range ext.Superfences.CustomFences {
			opts.CustomFences = append(opts.CustomFences, CustomFence{Name: f.Name, Class: f.Class})
		}
	}
	return opts
}

// Heading is one TOC entry in document order.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Result is a rendered page.
type Result struct {
	HTML  []byte
	TOC   []Heading
	Title string // first H1 text, empty if none
}

// Renderer renders markdown bodies (frontmatter already removed).
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer for the given options.
func NewRenderer(opts Options) *Renderer {
	if opts.TOC != nil && opts.TOC.PermalinkSymbol == "" {
		opts.TOC.PermalinkSymbol = "¶"
	}
	return &Renderer{opts: opts}
}

// Render converts a markdown body to HTML. pagePath is the page's source
// path relative to the docs root (slash separated); it anchors relative link
// rewriting.
//
// A fresh goldmark instance is built per call: the node renderer carries
// per-document fence numbering, and parse-context heading IDs must not leak
// between pages.
func (r *Renderer) Render(source []byte, pagePath string) (*Result, error) {
	if r.opts.SnippetsBase != "" {
		expanded, err := ExpandSnippets(source, r.opts.SnippetsBase)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", pagePath, err)
		}
		source = expanded
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&linkRewriter{pagePath: pagePath}, 500)),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(newNodeRenderer(r.opts), 100)),
		),
	)

	ctx := parser.NewContext(parser.WithIDs(newSlugIDs()))
	doc := md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))

	toc := collectTOC(doc, source)

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, fmt.Errorf("render %s: %w", pagePath, err)
	}

	title := ""
	for _, h := range toc {
		if h.Level == 1 {
			title = h.Text
			break
		}
	}

	return &Result{HTML: buf.Bytes(), TOC: toc, Title: title}, nil
}

// PlainText extracts the text content of a markdown body for indexing.
func PlainText(source []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	textContent(doc, source, &b)
	return strings.TrimSpace(b.String())
}

func collectTOC(doc gmast.Node, source []byte) []Heading {
	var toc []Heading
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if h, ok := n.(*gmast.Heading); ok {
			toc = append(toc, Heading{
				Level: h.Level,
				ID:    headingID(h),
				Text:  nodeText(h, source),
			})
		}
		return gmast.WalkContinue, nil
	})
	return toc
}

// nodeText flattens the text content of a node's subtree.
func nodeText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
		case *gmast.String:
			b.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}

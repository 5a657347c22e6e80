package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Section is a contiguous run of content under one heading. Content before
// the first heading lands in a section with an empty ID.
type Section struct {
	ID    string
	Level int
	Title string
	Text  string
}

// ExtractSections splits a markdown body at its headings. Anchor IDs are
// produced the same way Render produces them, so a section links straight to
// its rendered heading.
func ExtractSections(source []byte) []Section {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	ctx := parser.NewContext(parser.WithIDs(newSlugIDs()))
	doc := md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))

	var sections []Section
	var buf strings.Builder

	flush := func() {
		if len(sections) > 0 {
			sections[len(sections)-1].Text = strings.TrimSpace(buf.String())
		}
		buf.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*gmast.Heading); ok {
			flush()
			sections = append(sections, Section{
				ID:    headingID(h),
				Level: h.Level,
				Title: nodeText(h, source),
			})
			continue
		}
		if len(sections) == 0 {
			sections = append(sections, Section{})
		}
		textContent(n, source, &buf)
	}
	flush()

	return sections
}

// textContent appends the flattened text of a node's subtree, separating
// blocks with newlines.
func textContent(n gmast.Node, source []byte, b *strings.Builder) {
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if entering {
			switch t := c.(type) {
			case *gmast.Text:
				b.Write(t.Segment.Value(source))
			case *gmast.FencedCodeBlock:
				lines := t.Lines()
				for i := 0; i < lines.Len(); i++ {
					line := lines.At(i)
					b.Write(line.Value(source))
				}
			}
			return gmast.WalkContinue, nil
		}
		if c.Type() == gmast.TypeBlock {
			b.WriteByte('\n')
		}
		return gmast.WalkContinue, nil
	})
}

package markdown

import (
	"fmt"
	stdhtml "html"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// nodeRenderer overrides goldmark's HTML output for the constructs the
// configured extensions touch: headings (permalink anchors), fenced code
// blocks (highlight classes, line anchors, custom fences) and code spans
// (inline hilite). One instance per render; fence numbering is stateful.
type nodeRenderer struct {
	opts       Options
	fenceIndex int
}

func newNodeRenderer(opts Options) *nodeRenderer { return &nodeRenderer{opts: opts} }

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	if r.opts.TOC != nil && r.opts.TOC.Permalink {
		reg.Register(gmast.KindHeading, r.renderHeading)
	}
	if r.opts.Highlight != nil || r.opts.Superfences {
		reg.Register(gmast.KindFencedCodeBlock, r.renderFencedCode)
	}
	if r.opts.InlineHilite {
		reg.Register(gmast.KindCodeSpan, r.renderCodeSpan)
	}
}

func (r *nodeRenderer) renderHeading(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	n := node.(*gmast.Heading)
	id := headingID(n)

	if entering {
		if id != "" {
			fmt.Fprintf(w, `<h%d id="%s">`, n.Level, id)
		} else {
			fmt.Fprintf(w, "<h%d>", n.Level)
		}
		return gmast.WalkContinue, nil
	}

	if id != "" {
		fmt.Fprintf(w, `<a class="headerlink" href="#%s" title="Permanent link">%s</a>`,
			id, stdhtml.EscapeString(r.opts.TOC.PermalinkSymbol))
	}
	fmt.Fprintf(w, "</h%d>\n", n.Level)
	return gmast.WalkContinue, nil
}

func (r *nodeRenderer) renderFencedCode(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.FencedCodeBlock)

	lang := ""
	if l := n.Language(source); l != nil {
		lang = string(l)
	}

	// Custom fences (superfences) take the block verbatim: the class hands
	// the content to a client-side renderer (e.g. mermaid).
	if fence, ok := r.customFence(lang); ok {
		_, _ = w.WriteString(`<pre class="` + fence.Class + `">`)
		r.writeLines(w, source, n, -1)
		_, _ = w.WriteString("</pre>\n")
		return gmast.WalkContinue, nil
	}

	blockIndex := r.fenceIndex
	r.fenceIndex++

	_, _ = w.WriteString(`<div class="highlight"><pre><code`)
	if lang != "" {
		_, _ = w.WriteString(` class="language-` + stdhtml.EscapeString(lang) + `"`)
	}
	_, _ = w.WriteString(">")

	anchors := r.opts.Highlight != nil && r.opts.Highlight.AnchorLinenums
	if anchors {
		r.writeLines(w, source, n, blockIndex)
	} else {
		r.writeLines(w, source, n, -1)
	}

	_, _ = w.WriteString("</code></pre></div>\n")
	return gmast.WalkContinue, nil
}

// writeLines emits the code block content escaped. When blockIndex >= 0 each
// line is wrapped in an anchored span (__codelineno-<block>-<line>) so
// individual lines are linkable.
func (r *nodeRenderer) writeLines(w util.BufWriter, source []byte, n *gmast.FencedCodeBlock, blockIndex int) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		escaped := stdhtml.EscapeString(string(line.Value(source)))
		if blockIndex >= 0 {
			fmt.Fprintf(w, `<span class="line" id="__codelineno-%d-%d">%s</span>`, blockIndex, i+1, strings.TrimSuffix(escaped, "\n"))
			_, _ = w.WriteString("\n")
		} else {
			_, _ = w.WriteString(escaped)
		}
	}
}

func (r *nodeRenderer) renderCodeSpan(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</code>")
		return gmast.WalkContinue, nil
	}

	text := codeSpanText(node, source)

	// `#!lang code` tags an inline span with a language class.
	if strings.HasPrefix(text, "#!") {
		if rest := strings.SplitN(text[2:], " ", 2); len(rest) == 2 && rest[0] != "" {
			fmt.Fprintf(w, `<code class="language-%s">%s`, stdhtml.EscapeString(rest[0]), stdhtml.EscapeString(rest[1]))
			return gmast.WalkSkipChildren, nil
		}
	}

	_, _ = w.WriteString("<code>" + stdhtml.EscapeString(text))
	return gmast.WalkSkipChildren, nil
}

func (r *nodeRenderer) customFence(lang string) (CustomFence, bool) {
	for _, f := range r.opts.CustomFences {
		if f.Name == lang {
			return f, true
		}
	}
	return CustomFence{}, false
}

func headingID(n *gmast.Heading) string {
	v, ok := n.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	default:
		return ""
	}
}

func codeSpanText(node gmast.Node, source []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
	}
	return b.String()
}

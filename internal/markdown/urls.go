package markdown

import (
	"path"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// PageURL maps a source page path (relative to the docs root, slash
// separated) to its served URL. Pages get directory URLs:
//
//	index.md         -> /
//	guide/index.md   -> /guide/
//	guide/install.md -> /guide/install/
func PageURL(relPath string) string {
	p := strings.TrimSuffix(path.Clean(relPath), ".md")
	if p == "index" || p == "." {
		return "/"
	}
	if base := path.Base(p); base == "index" {
		p = path.Dir(p)
	}
	return "/" + p + "/"
}

// OutputPath maps a source page path to the HTML file written under the
// site root, matching the directory-URL layout of PageURL.
func OutputPath(relPath string) string {
	p := strings.TrimSuffix(path.Clean(relPath), ".md")
	if p == "index" || p == "." {
		return "index.html"
	}
	if base := path.Base(p); base == "index" {
		p = path.Dir(p)
	}
	return path.Join(p, "index.html")
}

// linkRewriter rewrites relative destinations so rendered pages link to the
// generated site layout instead of the markdown sources. Markdown targets
// become their page URLs; other relative targets (images, downloads) become
// root-relative asset paths.
type linkRewriter struct {
	pagePath string // source path of the page being rendered
}

func (l *linkRewriter) Transform(doc *gmast.Document, _ text.Reader, _ parser.Context) {
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			node.Destination = l.rewrite(node.Destination)
		case *gmast.Image:
			node.Destination = l.rewrite(node.Destination)
		}
		return gmast.WalkContinue, nil
	})
}

func (l *linkRewriter) rewrite(dest []byte) []byte {
	d := string(dest)
	if d == "" || isAbsoluteDestination(d) {
		return dest
	}

	target, fragment := splitFragment(d)
	if target == "" {
		return dest // pure fragment, same page
	}

	resolved := path.Clean(path.Join(path.Dir(l.pagePath), target))
	if strings.HasSuffix(resolved, ".md") {
		return []byte(PageURL(resolved) + fragment)
	}
	return []byte("/" + resolved + fragment)
}

func isAbsoluteDestination(d string) bool {
	return strings.HasPrefix(d, "/") ||
		strings.HasPrefix(d, "#") ||
		strings.HasPrefix(d, "mailto:") ||
		strings.HasPrefix(d, "tel:") ||
		strings.Contains(d, "://")
}

func splitFragment(d string) (string, string) {
	if i := strings.IndexByte(d, '#'); i >= 0 {
		return d[:i], d[i:]
	}
	return d, ""
}

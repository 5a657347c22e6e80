// Package readthedocs is a light theme in the classic documentation-hosting
// style: single left sidebar with the current page's headings folded in.
package readthedocs

import (
	"embed"
	"io"
	"io/fs"

	"github.com/torn-open/docsmith/internal/theme"
)

//go:embed templates static
var files embed.FS

var tmpl = theme.MustParse(files, "templates/*.html")

type Theme struct{}

func (Theme) Name() string { return "readthedocs" }

func (Theme) Features() theme.Features {
	return theme.Features{SearchBox: true, TOCSidebar: false}
}

func (Theme) RenderPage(w io.Writer, data theme.PageData) error {
	return tmpl.ExecuteTemplate(w, "page.html", data)
}

func (Theme) Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		return nil
	}
	return sub
}

func init() { theme.Register(Theme{}) }

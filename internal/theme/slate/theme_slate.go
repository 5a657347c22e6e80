// Package slate is the default theme: dark sidebar navigation, content
// column, table-of-contents rail.
package slate

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

func (Theme) Name() string { return "slate" }

func (Theme) Features() theme.Features {
	return theme.Features{SearchBox: true, TOCSidebar: true}
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

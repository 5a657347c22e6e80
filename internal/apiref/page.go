package apiref

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/doc"
	"go/printer"
	"go/token"
	"strings"
)

func renderPage(pkg *docPackage, opts Options) Page {
	title := pkg.name
	if opts.ShowRootFullPath {
		title = pkg.relPath
	}

	var b bytes.Buffer

	if opts.ShowRootHeading {
		fmt.Fprintf(&b, "# `%s`\n\n", title)
	}

	if pkg.doc.Doc != "" {
		b.WriteString(strings.TrimSpace(pkg.doc.Doc))
		b.WriteString("\n\n")
	}

	if len(pkg.doc.Consts) > 0 {
		b.WriteString("## Constants\n\n")
		for _, c := range pkg.doc.Consts {
			writeValue(&b, pkg, c, opts)
		}
	}
	if len(pkg.doc.Vars) > 0 {
		b.WriteString("## Variables\n\n")
		for _, v := range pkg.doc.Vars {
			writeValue(&b, pkg, v, opts)
		}
	}
	if len(pkg.doc.Funcs) > 0 {
		b.WriteString("## Functions\n\n")
		for _, f := range pkg.doc.Funcs {
			writeFunc(&b, pkg, f, opts, "###")
		}
	}
	if len(pkg.doc.Types) > 0 {
		b.WriteString("## Types\n\n")
		for _, t := range pkg.doc.Types {
			writeType(&b, pkg, t, opts)
		}
	}

	return Page{
		Path:    pagePath(opts.Section, pkg.relPath),
		Title:   title,
		Content: b.Bytes(),
	}
}

func writeValue(b *bytes.Buffer, pkg *docPackage, v *doc.Value, _ Options) {
	writeDecl(b, pkg.fset, stripDoc(v.Decl))
	writeDoc(b, v.Doc)
}

func writeFunc(b *bytes.Buffer, pkg *docPackage, f *doc.Func, opts Options, heading string) {
	name := f.Name
	if f.Recv != "" {
		name = fmt.Sprintf("(%s) %s", f.Recv, f.Name)
	}
	fmt.Fprintf(b, "%s `%s`\n\n", heading, name)

	writeDecl(b, pkg.fset, declForFunc(f, opts.ShowSource))
	writeDoc(b, f.Doc)
}

func writeType(b *bytes.Buffer, pkg *docPackage, t *doc.Type, opts Options) {
	fmt.Fprintf(b, "### `%s`\n\n", t.Name)
	writeDecl(b, pkg.fset, stripDoc(t.Decl))
	writeDoc(b, t.Doc)

	for _, c := range t.Consts {
		writeValue(b, pkg, c, opts)
	}
	for _, v := range t.Vars {
		writeValue(b, pkg, v, opts)
	}
	for _, f := range t.Funcs {
		writeFunc(b, pkg, f, opts, "####")
	}
	for _, m := range t.Methods {
		writeFunc(b, pkg, m, opts, "####")
	}
}

// declForFunc returns the declaration to print: the signature only, or the
// full body when source display is enabled. The doc comment renders as
// markdown either way, never inside the code block.
func declForFunc(f *doc.Func, showSource bool) ast.Node {
	decl := *f.Decl
	decl.Doc = nil
	if !showSource {
		decl.Body = nil
	}
	return &decl
}

// stripDoc copies a declaration without its doc comment.
func stripDoc(decl *ast.GenDecl) ast.Node {
	d := *decl
	d.Doc = nil
	return &d
}

func writeDecl(b *bytes.Buffer, fset *token.FileSet, decl ast.Node) {
	var src bytes.Buffer
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&src, fset, decl); err != nil {
		return
	}
	b.WriteString("```go\n")
	b.Write(src.Bytes())
	b.WriteString("\n```\n\n")
}

func writeDoc(b *bytes.Buffer, text string) {
	if text = strings.TrimSpace(text); text != "" {
		b.WriteString(text)
		b.WriteString("\n\n")
	}
}

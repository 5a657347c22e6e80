// Package apiref generates API reference pages from Go source trees.
//
// Configured source paths are scanned for packages; each package becomes one
// markdown page under the reference section, which the site build renders
// like any authored page.
package apiref

import (
	"go/ast"
	"go/doc"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	derrors "github.com/torn-open/docsmith/internal/errors"
)

// Options mirrors the apiref plugin configuration.
type Options struct {
	// Paths are the source directories to scan, absolute or resolved by the
	// caller before Generate runs.
	Paths []string

	// Section is the docs subdirectory the pages land in ("reference").
	Section string

	ShowRootHeading bool

	// ShowSource includes function and method bodies in the rendered
	// declaration blocks. Constant, variable and type declarations always
	// render as declarations only.
	ShowSource bool

	ShowRootFullPath bool
}

// Page is one generated reference page, addressed like an authored page
// relative to the docs root.
type Page struct {
	Path    string // e.g. "reference/config.md"
	Title   string
	Content []byte
}

// Generate scans every configured path and renders one page per package.
// Pages come back sorted by path so builds are deterministic.
func Generate(opts Options) ([]Page, error) {
	if opts.Section == "" {
		opts.Section = "reference"
	}

	var pages []Page
	for _, root := range opts.Paths {
		pkgs, err := scanTree(root)
		if err != nil {
			return nil, err
		}
		for _, pkg := range pkgs {
			pages = append(pages, renderPage(pkg, opts))
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages, nil
}

// docPackage is one scanned package ready for rendering.
type docPackage struct {
	name    string
	relPath string // slash path of the package dir under its scan root
	doc     *doc.Package
	fset    *token.FileSet
}

func scanTree(root string) ([]*docPackage, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryPlugin, "apiref: source path not readable")
	}
	if !info.IsDir() {
		return nil, derrors.New(derrors.CategoryPlugin, derrors.SeverityError, "apiref: source path is not a directory: "+root)
	}

	var pkgs []*docPackage
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor") {
			return filepath.SkipDir
		}

		pkg, err := scanDir(root, p)
		if err != nil {
			return err
		}
		if pkg != nil {
			pkgs = append(pkgs, pkg)
		}
		return nil
	})
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryPlugin, "apiref: scan failed")
	}
	return pkgs, nil
}

func scanDir(root, dir string) (*docPackage, error) {
	fset := token.NewFileSet()
	parsed, err := parser.ParseDir(fset, dir, func(fi fs.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, parser.ParseComments)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryPlugin, "apiref: parse failed in "+dir)
	}

	astPkg := pickPackage(parsed)
	if astPkg == nil {
		return nil, nil
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = dir
	}
	relPath := filepath.ToSlash(rel)
	if relPath == "." {
		relPath = astPkg.Name
	}

	// PreserveAST keeps function bodies so ShowSource has something to print;
	// doc comments are stripped from declarations at render time instead.
	return &docPackage{
		name:    astPkg.Name,
		relPath: relPath,
		doc:     doc.New(astPkg, relPath, doc.PreserveAST),
		fset:    fset,
	}, nil
}

// pickPackage selects the documented package for a directory: the non-main
// package when both a library and a main live together.
func pickPackage(parsed map[string]*ast.Package) *ast.Package {
	var fallback *ast.Package
	for name, pkg := range parsed {
		if name == "main" {
			fallback = pkg
			continue
		}
		return pkg
	}
	return fallback
}

// pagePath places a package page under the reference section.
func pagePath(section, relPath string) string {
	return path.Join(section, relPath) + ".md"
}

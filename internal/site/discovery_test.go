package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/torn-open/docsmith/internal/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func parseNav(t *testing.T, src string) config.Nav {
	t.Helper()
	var nav config.Nav
	require.NoError(t, yaml.Unmarshal([]byte(src), &nav))
	return nav
}

func TestDiscover_NavListedPagesFirst(t *testing.T) {
	docs := t.TempDir()
	writeTree(t, docs, map[string]string{
		"about.md":         "# About\n",
		"index.md":         "# Home\n",
		"guide/install.md": "# Install\n",
		"zextra.md":        "# Extra\n",
	})
	nav := parseNav(t, `
- Home: index.md
- Guide:
    - Install: guide/install.md
`)

	pages, _, err := discover(docs, nav, os.ReadFile)
	require.NoError(t, err)

	var order []string
	for _, p := range pages {
		order = append(order, p.SourcePath)
	}
	require.Equal(t, []string{"index.md", "guide/install.md", "about.md", "zextra.md"}, order)
	require.Equal(t, "Home", pages[0].NavTitle)
	require.Equal(t, "Install", pages[1].NavTitle)
	require.Empty(t, pages[2].NavTitle)
}

func TestDiscover_AssetsAndHiddenFiles(t *testing.T) {
	docs := t.TempDir()
	writeTree(t, docs, map[string]string{
		"index.md":       "# Home\n",
		"img/logo.png":   "png",
		".hidden.md":     "# Nope\n",
		".cache/tmp.md":  "# Nope\n",
		"css/custom.css": "body{}",
	})

	pages, assets, err := discover(docs, nil, os.ReadFile)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	var paths []string
	for _, a := range assets {
		paths = append(paths, a.SourcePath)
	}
	require.Equal(t, []string{"css/custom.css", "img/logo.png"}, paths)
}

func TestDiscover_HiddenFrontmatterSkipsPage(t *testing.T) {
	docs := t.TempDir()
	writeTree(t, docs, map[string]string{
		"index.md": "# Home\n",
		"draft.md": "---\nhidden: true\n---\n# Draft\n",
	})

	pages, _, err := discover(docs, nil, os.ReadFile)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "index.md", pages[0].SourcePath)
}

func TestBuildNav_ActiveEntryCarriesTOC(t *testing.T) {
	nav := parseNav(t, `
- Home: index.md
- Guide:
    - Install: guide/install.md
`)
	active := &Page{SourcePath: "guide/install.md", URL: "/guide/install/"}

	entries := buildNav(nav, active)
	require.Len(t, entries, 2)
	require.False(t, entries[0].Active)
	require.True(t, entries[1].Active, "section with active child is active")
	require.True(t, entries[1].Children[0].Active)
	require.Equal(t, "/guide/install/", entries[1].Children[0].URL)
}

func TestResolveTitle_Precedence(t *testing.T) {
	p := &Page{SourcePath: "guide/install.md"}
	require.Equal(t, "Rendered", p.resolveTitle("Rendered"))

	p.NavTitle = "Nav Label"
	require.Equal(t, "Rendered", p.resolveTitle("Rendered"))
	require.Equal(t, "Nav Label", p.resolveTitle(""))

	p.Meta.Title = "Front Matter"
	require.Equal(t, "Front Matter", p.resolveTitle("Rendered"))

	bare := &Page{SourcePath: "guide/getting-started.md"}
	require.Equal(t, "Getting started", bare.resolveTitle(""))

	idx := &Page{SourcePath: "guide/index.md"}
	require.Equal(t, "Guide", idx.resolveTitle(""))
}

func TestManifest_SiteHashDeterministic(t *testing.T) {
	a := newManifest("b1", "slate")
	a.Record("index.html", []byte("content"))
	a.Record("guide/index.html", []byte("other"))
	a.Finalize()

	b := newManifest("b2", "slate")
	b.Record("guide/index.html", []byte("other"))
	b.Record("index.html", []byte("content"))
	b.Finalize()

	require.Equal(t, a.SiteHash, b.SiteHash)

	b.Record("index.html", []byte("changed"))
	b.Finalize()
	require.NotEqual(t, a.SiteHash, b.SiteHash)
}

func TestManifest_WriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	m := newManifest("b1", "slate")
	m.Record("index.html", []byte("content"))
	m.Finalize()
	require.NoError(t, m.Write(dir))

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, m.SiteHash, loaded.SiteHash)
	require.Equal(t, "slate", loaded.Theme)

	missing, err := LoadManifest(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, missing)
}

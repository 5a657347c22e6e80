package markdown

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/torn-open/docsmith/internal/config"
)

func parseExtensions(t *testing.T, src string) config.Extensions {
	t.Helper()
	var ext config.Extensions
	require.NoError(t, yaml.Unmarshal([]byte(src), &ext))
	return ext
}

func TestSlugify_BasicHeadings(t *testing.T) {
	cases := map[string]string{
		"Getting Started":      "getting-started",
		"  Spaces   Around  ":  "spaces-around",
		"Déjà Vu":              "deja-vu",
		"API: v2 (beta)":       "api-v2-beta",
		"100% Coverage":        "100-coverage",
		"__init__ and friends": "init-and-friends",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestSlugIDs_DuplicatesDisambiguated(t *testing.T) {
	ids := newSlugIDs()
	require.Equal(t, "usage", string(ids.Generate([]byte("Usage"), 0)))
	require.Equal(t, "usage-1", string(ids.Generate([]byte("Usage"), 0)))
	require.Equal(t, "usage-2", string(ids.Generate([]byte("Usage"), 0)))
}

func TestSlugIDs_EmptyHeadingFallsBack(t *testing.T) {
	ids := newSlugIDs()
	require.Equal(t, "section", string(ids.Generate([]byte("!!!"), 0)))
	require.Equal(t, "section-1", string(ids.Generate([]byte("???"), 0)))
}

func TestPageURL_DirectoryLayout(t *testing.T) {
	require.Equal(t, "/", PageURL("index.md"))
	require.Equal(t, "/guide/", PageURL("guide/index.md"))
	require.Equal(t, "/guide/install/", PageURL("guide/install.md"))
	require.Equal(t, "/reference/api/", PageURL("reference/api.md"))
}

func TestOutputPath_MatchesPageURL(t *testing.T) {
	require.Equal(t, "index.html", OutputPath("index.md"))
	require.Equal(t, "guide/index.html", OutputPath("guide/index.md"))
	require.Equal(t, "guide/install/index.html", OutputPath("guide/install.md"))
}

func TestRender_TitleAndTOC(t *testing.T) {
	src := []byte("# Torn Open\n\nIntro.\n\n## Install\n\n## Install\n\n### Via pip\n")

	r := NewRenderer(Options{})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	require.Equal(t, "Torn Open", res.Title)
	require.Len(t, res.TOC, 4)
	require.Equal(t, Heading{Level: 1, ID: "torn-open", Text: "Torn Open"}, res.TOC[0])
	require.Equal(t, "install", res.TOC[1].ID)
	require.Equal(t, "install-1", res.TOC[2].ID)
	require.Equal(t, "via-pip", res.TOC[3].ID)
}

func TestRender_PermalinkAnchors(t *testing.T) {
	src := []byte("## Usage\n")

	r := NewRenderer(Options{TOC: &TOCOptions{Permalink: true}})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	html := string(res.HTML)
	require.Contains(t, html, `<h2 id="usage">`)
	require.Contains(t, html, `<a class="headerlink" href="#usage" title="Permanent link">¶</a>`)
}

func TestRender_PermalinkDisabled_NoAnchor(t *testing.T) {
	src := []byte("## Usage\n")

	r := NewRenderer(Options{})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	require.NotContains(t, string(res.HTML), "headerlink")
}

func TestRender_FencedCode_LanguageClassAndLineAnchors(t *testing.T) {
	src := []byte("```python\nx = 1\ny = 2\n```\n")

	r := NewRenderer(Options{Highlight: &HighlightOptions{AnchorLinenums: true}})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	html := string(res.HTML)
	require.Contains(t, html, `<code class="language-python">`)
	require.Contains(t, html, `id="__codelineno-0-1"`)
	require.Contains(t, html, `id="__codelineno-0-2"`)
}

func TestRender_FencedCode_BlockNumberingPerDocument(t *testing.T) {
	src := []byte("```python\na\n```\n\n```python\nb\n```\n")

	r := NewRenderer(Options{Highlight: &HighlightOptions{AnchorLinenums: true}})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)
	require.Contains(t, string(res.HTML), `id="__codelineno-1-1"`)

	// A second render starts numbering over; state must not leak.
	res, err = r.Render([]byte("```python\nc\n```\n"), "other.md")
	require.NoError(t, err)
	require.Contains(t, string(res.HTML), `id="__codelineno-0-1"`)
	require.NotContains(t, string(res.HTML), "__codelineno-2")
}

func TestRender_InlineHilite(t *testing.T) {
	src := []byte("Run `#!python import os` first.\n")

	r := NewRenderer(Options{InlineHilite: true})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	require.Contains(t, string(res.HTML), `<code class="language-python">import os</code>`)
}

func TestRender_InlineHilite_PlainSpanUntouched(t *testing.T) {
	src := []byte("Run `pip install` first.\n")

	r := NewRenderer(Options{InlineHilite: true})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	require.Contains(t, string(res.HTML), `<code>pip install</code>`)
}

func TestRender_CustomFence_VerbatimWithClass(t *testing.T) {
	src := []byte("```mermaid\ngraph TD; A-->B;\n```\n")

	r := NewRenderer(Options{
		Superfences:  true,
		CustomFences: []CustomFence{{Name: "mermaid", Class: "mermaid"}},
	})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	html := string(res.HTML)
	require.Contains(t, html, `<pre class="mermaid">`)
	require.Contains(t, html, "graph TD; A--&gt;B;")
	require.NotContains(t, html, "language-mermaid")
}

func TestRender_LinkRewriting(t *testing.T) {
	src := []byte("[install](install.md) [top](../index.md#intro) ![img](img/d.png) [ext](https://example.com/a.md) [frag](#here)\n")

	r := NewRenderer(Options{})
	res, err := r.Render(src, "guide/setup.md")
	require.NoError(t, err)

	html := string(res.HTML)
	require.Contains(t, html, `href="/guide/install/"`)
	require.Contains(t, html, `href="/#intro"`)
	require.Contains(t, html, `src="/guide/img/d.png"`)
	require.Contains(t, html, `href="https://example.com/a.md"`)
	require.Contains(t, html, `href="#here"`)
}

func TestRender_Snippets_InlineAndBlock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "part.md"), []byte("included text\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("more text\n"), 0o644))

	src := []byte("before\n\n--8<-- \"part.md\"\n\n--8<--\npart.md\nother.md\n--8<--\n\nafter\n")

	r := NewRenderer(Options{SnippetsBase: dir})
	res, err := r.Render(src, "index.md")
	require.NoError(t, err)

	html := string(res.HTML)
	require.Contains(t, html, "included text")
	require.Contains(t, html, "more text")
	require.Contains(t, html, "after")
}

func TestRender_Snippets_MissingFileFails(t *testing.T) {
	r := NewRenderer(Options{SnippetsBase: t.TempDir()})
	_, err := r.Render([]byte("--8<-- \"nope.md\"\n"), "index.md")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope.md")
}

func TestExpandSnippets_Recursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "outer.md"), []byte("outer\n--8<-- \"inner.md\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inner.md"), []byte("inner\n"), 0o644))

	out, err := ExpandSnippets([]byte("--8<-- \"outer.md\"\n"), dir)
	require.NoError(t, err)
	require.Equal(t, "outer\ninner\n", string(out))
}

func TestExpandSnippets_CycleDetected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "self.md"), []byte("--8<-- \"self.md\"\n"), 0o644))

	_, err := ExpandSnippets([]byte("--8<-- \"self.md\"\n"), dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "depth")
}

func TestExpandSnippets_UnterminatedBlockFails(t *testing.T) {
	_, err := ExpandSnippets([]byte("--8<--\npart.md\n"), t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated")
}

func TestPlainText_StripsMarkup(t *testing.T) {
	src := []byte("# Title\n\nSome *emphasis* and a [link](x.md).\n\n```python\ncode_line()\n```\n")

	text := PlainText(src)
	require.Contains(t, text, "Title")
	require.Contains(t, text, "Some emphasis and a link.")
	require.Contains(t, text, "code_line()")
	require.NotContains(t, text, "*")
	require.NotContains(t, text, "](")
}

func TestExtractSections_SplitAtHeadings(t *testing.T) {
	src := []byte("preamble text\n\n# Title\n\nintro\n\n## Usage\n\nrun it\n\n```sh\ncmd --flag\n```\n")

	sections := ExtractSections(src)
	require.Len(t, sections, 3)

	require.Empty(t, sections[0].ID)
	require.Equal(t, "preamble text", sections[0].Text)

	require.Equal(t, "title", sections[1].ID)
	require.Equal(t, "Title", sections[1].Title)
	require.Equal(t, 1, sections[1].Level)
	require.Equal(t, "intro", sections[1].Text)

	require.Equal(t, "usage", sections[2].ID)
	require.Contains(t, sections[2].Text, "run it")
	require.Contains(t, sections[2].Text, "cmd --flag")
}

func TestOptionsFromConfig_SnippetsBaseAnchored(t *testing.T) {
	opts := OptionsFromConfig(parseExtensions(t, `
- toc:
    permalink: true
- snippets:
    base_path: includes
`), "/srv/docs")
	require.Equal(t, filepath.Join("/srv/docs", "includes"), opts.SnippetsBase)
	require.NotNil(t, opts.TOC)
	require.True(t, opts.TOC.Permalink)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fullConfig = `site_name: Torn Open
site_url: https://docs.example.com
docs_dir: docs
nav:
  - Home: index.md
  - User Guide:
      - Installation: guide/install.md
      - Handlers: guide/handlers.md
  - changelog.md
theme:
  name: readthedocs
markdown_extensions:
  - toc:
      permalink: true
  - highlight:
      anchor_linenums: true
  - inlinehilite
  - snippets
  - superfences
plugins:
  - search
  - apiref:
      paths:
        - ./internal
      show_root_heading: false
      show_source: false
      show_root_full_path: false
`

func TestParse_FullConfig_DecodesSchema(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	require.Equal(t, "Torn Open", cfg.SiteName)
	require.Equal(t, "https://docs.example.com", cfg.SiteURL)
	require.Equal(t, "readthedocs", cfg.Theme.Name)

	require.Equal(t, []string{"toc", "highlight", "inlinehilite", "snippets", "superfences"}, cfg.Extensions.Names())
	require.NotNil(t, cfg.Extensions.TOC)
	require.True(t, cfg.Extensions.TOC.Permalink)
	require.NotNil(t, cfg.Extensions.Highlight)
	require.True(t, cfg.Extensions.Highlight.AnchorLinenums)
	require.True(t, cfg.Extensions.InlineHilite)

	require.Equal(t, []string{"search", "apiref"}, cfg.Plugins.Names())
	require.NotNil(t, cfg.Plugins.APIRef)
	require.Equal(t, []string{"./internal"}, cfg.Plugins.APIRef.Paths)
	require.False(t, cfg.Plugins.APIRef.ShowRootHeading)
	require.False(t, cfg.Plugins.APIRef.ShowSource)
	require.False(t, cfg.Plugins.APIRef.ShowRootFullPath)
}

func TestParse_NavOrderPreserved(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Nav, 3)
	require.Equal(t, "Home", cfg.Nav[0].Title)
	require.Equal(t, "index.md", cfg.Nav[0].Path)

	require.Equal(t, "User Guide", cfg.Nav[1].Title)
	require.True(t, cfg.Nav[1].IsSection())
	require.Equal(t, "guide/install.md", cfg.Nav[1].Children[0].Path)
	require.Equal(t, "guide/handlers.md", cfg.Nav[1].Children[1].Path)

	// Bare path entries derive their title from the filename.
	require.Equal(t, "Changelog", cfg.Nav[2].Title)
	require.Equal(t, "changelog.md", cfg.Nav[2].Path)

	require.Equal(t,
		[]string{"index.md", "guide/install.md", "guide/handlers.md", "changelog.md"},
		cfg.Nav.Pages())
}

func TestParse_NavOrderStableAcrossReparses(t *testing.T) {
	first, err := Parse([]byte(fullConfig))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Parse([]byte(fullConfig))
		require.NoError(t, err)
		require.Equal(t, first.Nav.Pages(), again.Nav.Pages())
	}
}

func TestParse_UnknownExtension_ReturnsError(t *testing.T) {
	_, err := Parse([]byte("site_name: x\nmarkdown_extensions:\n  - not_an_extension\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not_an_extension")
}

func TestParse_UnknownPlugin_ReturnsError(t *testing.T) {
	_, err := Parse([]byte("site_name: x\nplugins:\n  - mystery\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "mystery")
}

func TestParse_MalformedExtensionOptions_ReturnsError(t *testing.T) {
	_, err := Parse([]byte("site_name: x\nmarkdown_extensions:\n  - toc:\n      permalink: [not, a, bool]\n"))
	require.Error(t, err)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("site_name: Minimal\n"))
	require.NoError(t, err)
	require.Equal(t, "docs", cfg.DocsDir)
	require.Equal(t, "site", cfg.OutputDir)
	require.Equal(t, "slate", cfg.Theme.Name)
	require.Equal(t, "/metrics", cfg.Monitoring.MetricsPath)
	require.Equal(t, "/healthz", cfg.Monitoring.HealthPath)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("DOCSMITH_TEST_SITE", "Expanded Site")
	cfg, err := Parse([]byte("site_name: ${DOCSMITH_TEST_SITE}\n"))
	require.NoError(t, err)
	require.Equal(t, "Expanded Site", cfg.SiteName)
}

func TestValidate_MissingNavFile_Reported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "index.md"), []byte("# hi\n"), 0644))

	cfg, err := Parse([]byte("site_name: x\nnav:\n  - Home: index.md\n  - Missing: nope.md\n"))
	require.NoError(t, err)
	cfg.BaseDir = dir

	errs := cfg.Validate(ValidateOptions{ThemeKnown: func(string) bool { return true }})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "nope.md")
}

func TestValidate_UnknownTheme_Reported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0755))

	cfg, err := Parse([]byte("site_name: x\ntheme:\n  name: nonexistent\n"))
	require.NoError(t, err)
	cfg.BaseDir = dir

	errs := cfg.Validate(ValidateOptions{ThemeKnown: func(name string) bool { return name == "slate" }})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "nonexistent")
}

func TestValidate_BadRebuildInterval_Reported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0755))

	cfg, err := Parse([]byte("site_name: x\ndaemon:\n  rebuild_interval: soonish\n"))
	require.NoError(t, err)
	cfg.BaseDir = dir

	errs := cfg.Validate(ValidateOptions{ThemeKnown: func(string) bool { return true }})
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "rebuild_interval")
}

func TestInit_ScaffoldParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsmith.yaml")

	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "My Documentation", cfg.SiteName)
	require.True(t, cfg.Extensions.Enabled(ExtTOC))
	require.True(t, cfg.Plugins.Enabled(PluginSearch))
	require.True(t, cfg.Plugins.Enabled(PluginAPIRef))

	// Second init without force must refuse to overwrite.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}

func TestRebuildInterval_Parses(t *testing.T) {
	cfg, err := Parse([]byte("site_name: x\ndaemon:\n  rebuild_interval: 90s\n"))
	require.NoError(t, err)
	require.Equal(t, float64(90), cfg.RebuildInterval().Seconds())
}

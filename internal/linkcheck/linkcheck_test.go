package linkcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func TestCheckSite_ValidSiteHasNoIssues(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"index.html": `<html><body>
			<a href="/guide/">guide</a>
			<a href="/guide/#install">install</a>
			<a href="https://example.com/out">external</a>
			<img src="/assets/logo.png">
		</body></html>`,
		"guide/index.html": `<html><body>
			<h2 id="install">Install</h2>
			<a href="../">home</a>
			<a href="#install">self anchor</a>
		</body></html>`,
		"assets/logo.png": "png-bytes",
	})

	issues, err := CheckSite(dir)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckSite_MissingTargetReported(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"index.html": `<html><body><a href="/missing/">gone</a></body></html>`,
	})

	issues, err := CheckSite(dir)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "index.html", issues[0].Page)
	require.Equal(t, "/missing/", issues[0].Link)
	require.Equal(t, "missing target", issues[0].Reason)
}

func TestCheckSite_MissingAnchorReported(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"index.html":       `<html><body><a href="/guide/#nope">bad anchor</a></body></html>`,
		"guide/index.html": `<html><body><h2 id="install">Install</h2></body></html>`,
	})

	issues, err := CheckSite(dir)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "missing anchor", issues[0].Reason)
}

func TestCheckSite_SamePageFragment(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"index.html": `<html><body>
			<h2 id="usage">Usage</h2>
			<a href="#usage">ok</a>
			<a href="#absent">broken</a>
		</body></html>`,
	})

	issues, err := CheckSite(dir)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "#absent", issues[0].Link)
	require.Equal(t, "missing anchor", issues[0].Reason)
}

func TestCheckSite_RelativeLinksResolved(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"guide/index.html": `<html><body>
			<a href="../reference/">reference</a>
			<link rel="stylesheet" href="../assets/site.css">
		</body></html>`,
		"reference/index.html": `<html><body>reference</body></html>`,
		"assets/site.css":      "body{}",
	})

	issues, err := CheckSite(dir)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckSite_ExternalSchemesSkipped(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"index.html": `<html><body>
			<a href="https://example.com/nope">http</a>
			<a href="mailto:docs@example.com">mail</a>
			<a href="//cdn.example.com/lib.js">protocol relative</a>
		</body></html>`,
	})

	issues, err := CheckSite(dir)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckSite_IssuesSortedByPage(t *testing.T) {
	dir := writeSite(t, map[string]string{
		"b/index.html": `<html><body><a href="/gone-b/">x</a></body></html>`,
		"a/index.html": `<html><body><a href="/gone-a/">x</a></body></html>`,
	})

	issues, err := CheckSite(dir)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, "a/index.html", issues[0].Page)
	require.Equal(t, "b/index.html", issues[1].Page)
}

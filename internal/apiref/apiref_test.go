package apiref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSource = `// Package widgets assembles widgets.
package widgets

// DefaultSize is the widget size used when none is given.
const DefaultSize = 4

// Widget is an assembled widget.
type Widget struct {
	Size int
}

// New returns a Widget with the default size.
func New() *Widget {
	return &Widget{Size: DefaultSize}
}

// Grow increases the widget size.
func (w *Widget) Grow(by int) {
	w.Size += by
}

// Count reports how many widgets exist.
func Count() int {
	return 0
}
`

func writeSampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "widgets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "widgets", "widgets.go"), []byte(sampleSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "widgets", "widgets_test.go"),
		[]byte("package widgets\n\nfunc helperOnlyInTests() {}\n"), 0o644))
	return root
}

func TestGenerate_PagePerPackage(t *testing.T) {
	root := writeSampleTree(t)

	pages, err := Generate(Options{Paths: []string{root}, Section: "reference"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "reference/widgets.md", pages[0].Path)
	require.Equal(t, "widgets", pages[0].Title)

	content := string(pages[0].Content)
	require.Contains(t, content, "Package widgets assembles widgets.")
	require.Contains(t, content, "## Constants")
	require.Contains(t, content, "DefaultSize")
	require.Contains(t, content, "### `Widget`")
	require.Contains(t, content, "#### `New`")
	require.Contains(t, content, "#### `(*Widget) Grow`")
	require.Contains(t, content, "### `Count`")
	require.NotContains(t, content, "helperOnlyInTests")
}

func TestGenerate_RootHeadingSuppressedByDefault(t *testing.T) {
	root := writeSampleTree(t)

	pages, err := Generate(Options{Paths: []string{root}})
	require.NoError(t, err)
	require.NotContains(t, string(pages[0].Content), "# `widgets`")
}

func TestGenerate_RootHeadingWithFullPath(t *testing.T) {
	root := writeSampleTree(t)

	pages, err := Generate(Options{
		Paths:            []string{root},
		ShowRootHeading:  true,
		ShowRootFullPath: true,
	})
	require.NoError(t, err)
	require.Contains(t, string(pages[0].Content), "# `widgets`\n")
	require.Equal(t, "widgets", pages[0].Title)
}

func TestGenerate_SignatureOnlyWithoutShowSource(t *testing.T) {
	root := writeSampleTree(t)

	pages, err := Generate(Options{Paths: []string{root}})
	require.NoError(t, err)

	content := string(pages[0].Content)
	require.Contains(t, content, "func Count() int")
	require.NotContains(t, content, "return 0")
}

func TestGenerate_ShowSourceIncludesBodies(t *testing.T) {
	root := writeSampleTree(t)

	pages, err := Generate(Options{Paths: []string{root}, ShowSource: true})
	require.NoError(t, err)

	content := string(pages[0].Content)
	require.Contains(t, content, "return 0")
	require.Contains(t, content, "w.Size += by")
	// Doc comments render as markdown, not inside the code blocks.
	require.NotContains(t, content, "```go\n// Count")
}

func TestGenerate_SkipsTestdataAndHiddenDirs(t *testing.T) {
	root := writeSampleTree(t)
	for _, dir := range []string{"widgets/testdata", "widgets/.cache", "widgets/_tmp"} {
		full := filepath.Join(root, filepath.FromSlash(dir))
		require.NoError(t, os.MkdirAll(full, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(full, "x.go"), []byte("package ignored\n"), 0o644))
	}

	pages, err := Generate(Options{Paths: []string{root}})
	require.NoError(t, err)
	require.Len(t, pages, 1)
}

func TestGenerate_MissingPathFails(t *testing.T) {
	_, err := Generate(Options{Paths: []string{filepath.Join(t.TempDir(), "absent")}})
	require.Error(t, err)
}

func TestGenerate_DefaultSectionApplied(t *testing.T) {
	root := writeSampleTree(t)

	pages, err := Generate(Options{Paths: []string{root}})
	require.NoError(t, err)
	require.Equal(t, "reference/widgets.md", pages[0].Path)
}

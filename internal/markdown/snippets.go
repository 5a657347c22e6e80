package markdown

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const snippetMarker = "--8<--"

// maxSnippetDepth bounds recursive inclusion; mutually including files would
// otherwise never terminate.
const maxSnippetDepth = 10

// ExpandSnippets resolves `--8<--` inclusion markers against basePath.
//
// Two forms are supported, matching the configuration's snippets extension:
//
//	--8<-- "relative/path.md"        (single line)
//
//	--8<--
//	relative/one.md
//	relative/two.md
//	--8<--                           (block)
//
// Included content is expanded recursively. A missing file is an error; a
// broken include is a broken page, not a silently empty section.
func ExpandSnippets(source []byte, basePath string) ([]byte, error) {
	return expandSnippets(source, basePath, 0)
}

func expandSnippets(source []byte, basePath string, depth int) ([]byte, error) {
	if depth > maxSnippetDepth {
		return nil, fmt.Errorf("snippet include depth exceeds %d (include cycle?)", maxSnippetDepth)
	}
	if !bytes.Contains(source, []byte(snippetMarker)) {
		return source, nil
	}

	var out bytes.Buffer
	lines := strings.SplitAfter(string(source), "\n")

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if trimmed == snippetMarker {
			// Block form: consume paths until the closing marker.
			j := i + 1
			var paths []string
			for ; j < len(lines); j++ {
				inner := strings.TrimSpace(lines[j])
				if inner == snippetMarker {
					break
				}
				if inner != "" {
					paths = append(paths, inner)
				}
			}
			if j == len(lines) {
				return nil, fmt.Errorf("unterminated snippet block at line %d", i+1)
			}
			for _, p := range paths {
				if err := includeSnippet(&out, p, basePath, depth); err != nil {
					return nil, err
				}
			}
			i = j
			continue
		}

		if path, ok := parseInlineSnippet(trimmed); ok {
			if err := includeSnippet(&out, path, basePath, depth); err != nil {
				return nil, err
			}
			continue
		}

		out.WriteString(lines[i])
	}

	return out.Bytes(), nil
}

// parseInlineSnippet matches `--8<-- "path"` (single or double quoted).
func parseInlineSnippet(line string) (string, bool) {
	if !strings.HasPrefix(line, snippetMarker) {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, snippetMarker))
	if len(rest) < 2 {
		return "", false
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return "", false
	}
	if rest[len(rest)-1] != quote {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}

func includeSnippet(out *bytes.Buffer, path, basePath string, depth int) error {
	full := filepath.Join(basePath, filepath.FromSlash(path))
	content, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("snippet %q: %w", path, err)
	}

	expanded, err := expandSnippets(content, filepath.Dir(full), depth+1)
	if err != nil {
		return err
	}

	out.Write(expanded)
	if len(expanded) > 0 && expanded[len(expanded)-1] != '\n' {
		out.WriteByte('\n')
	}
	return nil
}

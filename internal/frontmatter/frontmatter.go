// Package frontmatter splits and parses `---` delimited YAML frontmatter
// from markdown documents. Pages are read-only inputs here, so unlike
// editors that rewrite files in place, no formatting detail is preserved
// beyond the body bytes.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Meta is the typed view of page frontmatter. Unrecognized keys are kept in
// Extra so themes and plugins can reach them.
type Meta struct {
	Title       string
	Description string
	Hidden      bool
	Extra       map[string]any
}

// Split separates YAML frontmatter from the markdown body.
//
// If the document does not start with a frontmatter delimiter, had is false
// and body is the full input.
func Split(content []byte) (raw []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]

	// Empty frontmatter block: delimiters back to back.
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	raw = rest[:idx+len(nl)]
	body = rest[idx+len(closeSeq):]
	return raw, body, true, nil
}

// Parse splits a document and decodes its frontmatter into Meta.
func Parse(content []byte) (Meta, []byte, error) {
	raw, body, had, err := Split(content)
	if err != nil {
		return Meta{}, nil, err
	}
	if !had || len(raw) == 0 {
		return Meta{}, body, nil
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return Meta{}, nil, fmt.Errorf("invalid frontmatter: %w", err)
	}

	meta := Meta{Extra: map[string]any{}}
	for k, v := range fields {
		switch k {
		case "title":
			if s, ok := v.(string); ok {
				meta.Title = s
			}
		case "description":
			if s, ok := v.(string); ok {
				meta.Description = s
			}
		case "hidden":
			if b, ok := v.(bool); ok {
				meta.Hidden = b
			}
		default:
			meta.Extra[k] = v
		}
	}
	return meta, body, nil
}

func detectNewline(content []byte) string {
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			return "\r\n"
		}
		if content[i] == '\n' {
			return "\n"
		}
	}
	return "\n"
}

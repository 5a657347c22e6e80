// Package search builds the site search index: a JSON file the theme's
// client-side search loads, plus a SQLite FTS5 table backing the serve-time
// /api/search endpoint.
package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/torn-open/docsmith/internal/markdown"
)

// Document is one indexed unit: a whole page or one of its sections.
type Document struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

// DocumentsForPage produces the index records for a rendered page: one
// record for the page itself and one per heading section, located at the
// heading's anchor.
func DocumentsForPage(pageURL, title string, body []byte) []Document {
	docs := []Document{{
		Location: pageURL,
		Title:    title,
		Text:     markdown.PlainText(body),
	}}

	for _, s := range markdown.ExtractSections(body) {
		if s.ID == "" {
			continue // preamble text is covered by the page record
		}
		docs = append(docs, Document{
			Location: pageURL + "#" + s.ID,
			Title:    s.Title,
			Text:     s.Text,
		})
	}
	return docs
}

// indexFile is the on-disk shape of search_index.json.
type indexFile struct {
	Docs []Document `json:"docs"`
}

// WriteIndex writes search_index.json under the site output directory.
func WriteIndex(path string, docs []Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write search index: %w", err)
	}
	data, err := json.MarshalIndent(indexFile{Docs: docs}, "", "  ")
	if err != nil {
		return fmt.Errorf("write search index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write search index: %w", err)
	}
	return nil
}

// ReadIndex loads a previously written search_index.json.
func ReadIndex(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search index: %w", err)
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("read search index: %w", err)
	}
	return f.Docs, nil
}

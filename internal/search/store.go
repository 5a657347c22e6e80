package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	derrors "github.com/torn-open/docsmith/internal/errors"
)

// Store keeps the search documents in a SQLite FTS5 table so the serve-time
// endpoint can rank and snippet matches.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the search database. Use ":memory:" for an
// in-memory store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open search database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize search schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS docs_fts USING fts5(
			location UNINDEXED,
			title,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// Rebuild replaces the table contents with the given documents. A build
// always reindexes the whole site; the table is small and the swap stays
// atomic inside one transaction.
func (s *Store) Rebuild(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM docs_fts`); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	for _, d := range docs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO docs_fts (location, title, text) VALUES (?, ?, ?)`,
			d.Location, d.Title, d.Text)
		if err != nil {
			return fmt.Errorf("rebuild search index: insert %s: %w", d.Location, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	return nil
}

// Result is one ranked search hit.
type Result struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

// Search runs an FTS5 match and returns ranked results with snippets.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT location,
		       title,
		       snippet(docs_fts, 2, '<mark>', '</mark>', '...', 32)
		FROM docs_fts
		WHERE docs_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		if isQuerySyntaxError(err) {
			return nil, derrors.ValidationError(fmt.Sprintf("invalid search query %q", query))
		}
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Location, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// isQuerySyntaxError recognizes FTS5 complaints about the MATCH expression
// itself, as opposed to storage failures.
func isQuerySyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") ||
		strings.Contains(msg, "unterminated string") ||
		strings.Contains(msg, "malformed MATCH") ||
		strings.Contains(msg, "unknown special query") ||
		strings.Contains(msg, "no such column")
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

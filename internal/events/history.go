package events

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryStore persists build results in SQLite so daemon restarts keep the
// build history.
type HistoryStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewHistoryStore opens (or creates) the history database. Use ":memory:"
// for tests.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &HistoryStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return s, nil
}

func (s *HistoryStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		changed INTEGER NOT NULL,
		site_hash TEXT,
		pages INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_finished_at ON builds(finished_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one finished build.
func (s *HistoryStore) Append(ctx context.Context, evt BuildFinished) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (build_id, outcome, changed, site_hash, pages, duration_ms, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.BuildID, evt.Outcome, boolToInt(evt.Changed), evt.SiteHash,
		evt.Pages, evt.Duration.Milliseconds(), evt.Error, evt.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("append build history: %w", err)
	}
	return nil
}

// Recent returns the latest builds, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]BuildFinished, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT build_id, outcome, changed, site_hash, pages, duration_ms, error, finished_at
		FROM builds
		ORDER BY finished_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query build history: %w", err)
	}
	defer rows.Close()

	var out []BuildFinished
	for rows.Next() {
		var (
			evt        BuildFinished
			changed    int
			durationMS int64
			finishedAt int64
		)
		if err := rows.Scan(&evt.BuildID, &evt.Outcome, &changed, &evt.SiteHash,
			&evt.Pages, &durationMS, &evt.Error, &finishedAt); err != nil {
			return nil, err
		}
		evt.Changed = changed != 0
		evt.Duration = time.Duration(durationMS) * time.Millisecond
		evt.At = time.UnixMilli(finishedAt)
		out = append(out, evt)
	}
	return out, rows.Err()
}

// Close releases the underlying database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

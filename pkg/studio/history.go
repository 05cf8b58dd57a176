package studio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Build statuses recorded in the history.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// BuildRecord is one row of the build history.
type BuildRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
	Bytes      int       `json:"bytes"`
	Revision   uint64    `json:"revision"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// History persists build records to a SQLite table.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
// The special path ":memory:" keeps the history in memory.
func OpenHistory(path string) (*History, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		revision INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create builds table: %w", err)
	}
	return &History{db: db}, nil
}

// Record inserts a build record.
func (h *History) Record(ctx context.Context, r BuildRecord) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO builds (id, started_at, duration_ms, bytes, revision, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixMilli(), r.DurationMS, r.Bytes, int64(r.Revision), r.Status, r.Error)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (h *History) List(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, bytes, revision, status, error
		 FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []BuildRecord{}
	for rows.Next() {
		var (
			r       BuildRecord
			started int64
			rev     int64
		)
		if err := rows.Scan(&r.ID, &started, &r.DurationMS, &r.Bytes, &rev, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.Revision = uint64(rev)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

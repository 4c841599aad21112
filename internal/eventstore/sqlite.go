package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLimit = 20

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating when needed) the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("%w: %w", ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		outcome TEXT NOT NULL,
		repository TEXT NOT NULL,
		url TEXT,
		branch TEXT,
		head_before TEXT,
		head_after TEXT,
		commits INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_repository ON sync_runs(repository);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_run_id ON sync_runs(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new record to the store.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.RunID == "" {
		rec.RunID = NewRunID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (run_id, operation, outcome, repository, url, branch, head_before, head_after, commits, error, duration_ns, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Operation, rec.Outcome, rec.Repository, rec.URL, rec.Branch,
		rec.HeadBefore, rec.HeadAfter, rec.Commits, rec.Error, int64(rec.Duration), rec.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAppendFailed, err)
	}
	return nil
}

const selectColumns = `SELECT id, run_id, operation, outcome, repository, url, branch, head_before, head_after, commits, error, duration_ns, timestamp FROM sync_runs`

// Recent returns the newest records across all repositories.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByRepository returns the newest records for one working copy.
func (s *SQLiteStore) ByRepository(ctx context.Context, path string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE repository = ? ORDER BY id DESC LIMIT ?`, path, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var (
			r                                     Record
			url, branch, before, after, errorText sql.NullString
			durationNS, ts                        int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Operation, &r.Outcome, &r.Repository,
			&url, &branch, &before, &after, &r.Commits, &errorText, &durationNS, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrQueryFailed, err)
		}
		r.URL, r.Branch, r.HeadBefore, r.HeadAfter, r.Error = url.String, branch.String, before.String, after.String, errorText.String
		r.Duration = time.Duration(durationNS)
		r.Timestamp = time.Unix(0, ts)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %w", ErrQueryFailed, err)
	}
	return out, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Open returns a SQLite store for path, or a NopStore when path is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return NopStore{}, nil
	}
	return NewSQLiteStore(path)
}

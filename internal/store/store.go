// Package store persists Job and Result records in SQLite.
//
// List-valued Result fields are kept as JSON text columns rather than child
// tables; the rows are written once and read back whole, so there is nothing
// to query inside them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a job id has no row.
var ErrNotFound = errors.New("job not found")

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	filename   TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	error_msg  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	job_id         TEXT PRIMARY KEY REFERENCES jobs(id),
	transcript     TEXT NOT NULL,
	overview       TEXT NOT NULL,
	key_points     TEXT NOT NULL,
	decisions      TEXT NOT NULL,
	open_questions TEXT NOT NULL,
	action_items   TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL
);
`

// Store wraps the SQLite handle. database/sql pools connections, so each
// background worker gets its own session without extra plumbing.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("database ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Package history keeps a local record of sync runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	state       TEXT NOT NULL,
	failed_at   TEXT NOT NULL DEFAULT '',
	sheet       TEXT NOT NULL DEFAULT '',
	column_name TEXT NOT NULL DEFAULT '',
	rows_read   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	written     INTEGER NOT NULL DEFAULT 0,
	statuses    TEXT NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT ''
)`

// Entry is one stored run.
type Entry struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	State      string
	FailedAt   string
	Sheet      string
	Column     string
	RowsRead   int
	Skipped    int
	Written    int
	Statuses   map[string]int
	Error      string
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY between the scheduler and manual runs
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run history schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("Run history opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e, replacing any earlier entry with the same run id.
func (s *Store) Record(ctx context.Context, e Entry) error {
	statuses, err := json.Marshal(e.Statuses)
	if err != nil {
		return fmt.Errorf("failed to encode statuses: %w", err)
	}
	if e.Statuses == nil {
		statuses = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(run_id, started_at, finished_at, state, failed_at, sheet, column_name, rows_read, skipped, written, statuses, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(), e.State, e.FailedAt,
		e.Sheet, e.Column, e.RowsRead, e.Skipped, e.Written, string(statuses), e.Error)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", e.RunID, err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, state, failed_at, sheet,
		column_name, rows_read, skipped, written, statuses, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			started, finished int64
			statuses          string
		)
		if err := rows.Scan(&e.RunID, &started, &finished, &e.State, &e.FailedAt, &e.Sheet,
			&e.Column, &e.RowsRead, &e.Skipped, &e.Written, &statuses, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run history: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		if err := json.Unmarshal([]byte(statuses), &e.Statuses); err != nil {
			return nil, fmt.Errorf("failed to decode statuses for run %s: %w", e.RunID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

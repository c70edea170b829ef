// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bidsflow/bidsflow/internal/record"
)

//go:embed schema.sql
var sqliteSchema string

// SQLite indexes records and their files in a SQLite database. All records
// of a run are written in one transaction, committed by Complete.
type SQLite struct {
	db       *sql.DB
	tx       *sql.Tx
	runID    string
	position int
	done     bool
}

// OpenSQLite opens (creating if needed) the database at path for run runID.
func OpenSQLite(ctx context.Context, path, runID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id) VALUES (?)`, runID); err != nil {
		_ = tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}
	return &SQLite{db: db, tx: tx, runID: runID}, nil
}

// Emit implements Sink.
func (s *SQLite) Emit(ctx context.Context, r record.ChannelRecord) error {
	if s.done {
		return ErrCompleted
	}
	key, err := json.Marshal(r.Key())
	if err != nil {
		return fmt.Errorf("encoding group key: %w", err)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	pos := s.position
	if _, err := s.tx.ExecContext(ctx,
		`INSERT INTO records (run_id, position, group_key, payload) VALUES (?, ?, ?, ?)`,
		s.runID, pos, string(key), string(payload)); err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	for _, suffix := range r.Suffixes() {
		for _, p := range r.Files(suffix) {
			if _, err := s.tx.ExecContext(ctx,
				`INSERT INTO record_files (run_id, position, suffix, path) VALUES (?, ?, ?, ?)`,
				s.runID, pos, suffix, p); err != nil {
				return fmt.Errorf("inserting file: %w", err)
			}
		}
	}
	s.position++
	return nil
}

// Complete implements Sink. It marks the run complete, commits, and closes
// the database.
func (s *SQLite) Complete(ctx context.Context) error {
	if s.done {
		return ErrCompleted
	}
	s.done = true
	if _, err := s.tx.ExecContext(ctx, `UPDATE runs SET completed = 1 WHERE id = ?`, s.runID); err != nil {
		_ = s.tx.Rollback()
		return errors.Join(fmt.Errorf("completing run: %w", err), s.db.Close())
	}
	if err := s.tx.Commit(); err != nil {
		return errors.Join(fmt.Errorf("committing run: %w", err), s.db.Close())
	}
	return s.db.Close()
}

// Abort rolls back an incomplete run and closes the database.
func (s *SQLite) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	return errors.Join(s.tx.Rollback(), s.db.Close())
}

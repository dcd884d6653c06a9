// Package sqlitestore persists saga execution snapshots to SQLite,
// giving a durable, single-process-production saga.Store (spec §1
// assumes "a key-value store" for snapshot persistence, without
// mandating a backend).
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/kjarrow/sagaflow/pkg/saga"
)

// Store persists saga.SagaExecutionRaw snapshots to a SQLite database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// New opens (creating if necessary) a SQLite-backed Store at path, or
// ":memory:" for an ephemeral in-process database.
//
// The database file is created with restrictive permissions (0600)
// before sql.Open ever touches it, closing the TOCTOU window where the
// file would otherwise be briefly world-readable — saga execution
// snapshots carry the same business-sensitive state as the checkpoints
// this pattern originally protected.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			f, createErr := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
			if createErr == nil {
				if closeErr := f.Close(); closeErr != nil {
					slog.Warn("sqlitestore: failed to close newly created database file",
						slog.String("path", path), slog.String("error", closeErr.Error()))
				}
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS saga_executions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_saga_executions_status
		ON saga_executions(status)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create index: %w", err)
	}

	if path != ":memory:" {
		if err := os.Chmod(path, 0600); err != nil {
			slog.Warn("sqlitestore: failed to set restrictive permissions on database file",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	return &Store{db: db}, nil
}

// ErrClosed is returned by any operation on a Store after Close.
var ErrClosed = errors.New("sqlitestore: store is closed")

func (s *Store) Create(ctx context.Context, raw saga.SagaExecutionRaw) error {
	return s.upsert(ctx, raw, true)
}

func (s *Store) Update(ctx context.Context, raw saga.SagaExecutionRaw) error {
	return s.upsert(ctx, raw, false)
}

func (s *Store) upsert(ctx context.Context, raw saga.SagaExecutionRaw, mustNotExist bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if raw.ID == "" {
		return errors.New("sqlitestore: execution ID is required")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal execution: %w", err)
	}

	if mustNotExist {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM saga_executions WHERE id = ?`, raw.ID).Scan(&exists)
		if err == nil {
			return saga.ErrExecutionExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlitestore: check existing execution: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO saga_executions (id, status, data) VALUES (?, ?, ?)
		`, raw.ID, raw.Status, data)
		if err != nil {
			return fmt.Errorf("sqlitestore: insert execution: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE saga_executions SET status = ?, data = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?
	`, raw.Status, data, raw.ID)
	if err != nil {
		return fmt.Errorf("sqlitestore: update execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: update execution: %w", err)
	}
	if affected == 0 {
		return saga.ErrExecutionNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, executionID string) (saga.SagaExecutionRaw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return saga.SagaExecutionRaw{}, ErrClosed
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM saga_executions WHERE id = ?`, executionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return saga.SagaExecutionRaw{}, saga.ErrExecutionNotFound
	}
	if err != nil {
		return saga.SagaExecutionRaw{}, fmt.Errorf("sqlitestore: get execution: %w", err)
	}

	var raw saga.SagaExecutionRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return saga.SagaExecutionRaw{}, fmt.Errorf("sqlitestore: decode execution: %w", err)
	}
	return raw, nil
}

func (s *Store) List(ctx context.Context, filter *saga.ListFilter) ([]saga.SagaExecutionRaw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	query := `SELECT data FROM saga_executions`
	var args []any
	if filter != nil && filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY updated_at`
	if filter != nil && (filter.Limit > 0 || filter.Offset > 0) {
		// SQLite only accepts OFFSET after LIMIT; LIMIT -1 means unbounded.
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ?`
		args = append(args, limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list executions: %w", err)
	}
	defer rows.Close()

	var results []saga.SagaExecutionRaw
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan execution: %w", err)
		}
		var raw saga.SagaExecutionRaw
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode execution: %w", err)
		}
		results = append(results, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: iterate executions: %w", err)
	}
	return results, nil
}

func (s *Store) Delete(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saga_executions WHERE id = ?`, executionID)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: delete execution: %w", err)
	}
	if affected == 0 {
		return saga.ErrExecutionNotFound
	}
	return nil
}

// Close closes the underlying database handle. Further calls on s
// return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ saga.Store = (*Store)(nil)

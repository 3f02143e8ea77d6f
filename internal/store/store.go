// Package store implements the engine's value-store port on SQLite.
// Records live in the project_values table, keyed for live rows by
// (project, attribute, set_prefix, set_index, position); rows frozen into a
// snapshot carry a snapshot_id and fall outside every engine operation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/tonimelisma/orcid-go/internal/sync"
)

// ErrNotFound is returned by Get when no live record exists at the key.
var ErrNotFound = errors.New("store: record not found")

// SQL statements for value operations.
const (
	sqlUpsertValue = `INSERT INTO project_values
		(project, attribute, set_prefix, set_index, position, text, xref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project, attribute, set_prefix, set_index, position)
			WHERE snapshot_id IS NULL
		DO UPDATE SET
		 text = excluded.text,
		 xref = excluded.xref,
		 updated_at = excluded.updated_at`

	sqlDeleteOutside = `DELETE FROM project_values
		WHERE project = ? AND attribute = ? AND set_prefix = ? AND set_index = ?
		  AND snapshot_id IS NULL
		  AND (position < 0 OR position >= ?)`

	sqlInsertReference = `INSERT INTO project_values
		(project, attribute, set_prefix, set_index, position, option_uri, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT (project, attribute, set_prefix, set_index, position)
			WHERE snapshot_id IS NULL
		DO NOTHING`

	sqlGetValue = `SELECT text, xref FROM project_values
		WHERE project = ? AND attribute = ? AND set_prefix = ? AND set_index = ? AND position = ?
		  AND snapshot_id IS NULL`

	sqlListPositions = `SELECT position FROM project_values
		WHERE project = ? AND attribute = ? AND set_prefix = ? AND set_index = ?
		  AND snapshot_id IS NULL
		ORDER BY position`

	sqlSnapshot = `INSERT INTO project_values
		(project, attribute, set_prefix, set_index, position, text, xref, option_uri, snapshot_id, created_at, updated_at)
		SELECT project, attribute, set_prefix, set_index, position, text, xref, option_uri, ?, created_at, ?
		FROM project_values
		WHERE project = ? AND snapshot_id IS NULL`
)

// Store is the SQLite-backed value store. It is the sole writer to its
// database file (SetMaxOpenConns(1)); serialization of concurrent syncs
// for the same scope is this layer's responsibility, not the engine's.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Row is one live record as returned by Get.
type Row struct {
	Text string
	XRef string
}

// New opens the SQLite database at dbPath, runs migrations, and returns a
// ready-to-use store. The database uses WAL mode with synchronous=FULL for
// crash-safe durability.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("value store initialized", slog.String("db_path", dbPath))

	return &Store{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert creates or overwrites the live record at (scope, field, position).
func (s *Store) Upsert(ctx context.Context, scope sync.Scope, field string, position int, v sync.Value) error {
	now := s.nowFunc().UnixNano()

	_, err := s.db.ExecContext(ctx, sqlUpsertValue,
		scope.Project, field, scope.SetPrefix, scope.SetIndex, position,
		v.Text, v.XRef, now, now,
	)
	if err != nil {
		return fmt.Errorf("store: upserting %s position %d in %s: %w", field, position, scope, err)
	}

	return nil
}

// DeleteOutside removes every live record at (scope, field) whose position
// falls outside 0..n-1. Snapshot rows are never touched.
func (s *Store) DeleteOutside(ctx context.Context, scope sync.Scope, field string, n int) error {
	res, err := s.db.ExecContext(ctx, sqlDeleteOutside,
		scope.Project, field, scope.SetPrefix, scope.SetIndex, n,
	)
	if err != nil {
		return fmt.Errorf("store: pruning %s in %s: %w", field, scope, err)
	}

	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		s.logger.Debug("pruned stale positions",
			slog.String("scope", scope.String()),
			slog.String("field", field),
			slog.Int64("deleted", deleted),
		)
	}

	return nil
}

// GetOrCreateReference ensures the marker record (field set to option)
// exists at position 0 of the scope. An existing record is left untouched.
func (s *Store) GetOrCreateReference(ctx context.Context, scope sync.Scope, field, option string) error {
	now := s.nowFunc().UnixNano()

	_, err := s.db.ExecContext(ctx, sqlInsertReference,
		scope.Project, field, scope.SetPrefix, scope.SetIndex, option, now, now,
	)
	if err != nil {
		return fmt.Errorf("store: ensuring reference %s in %s: %w", field, scope, err)
	}

	return nil
}

// Get returns the live record at (scope, field, position), or ErrNotFound.
func (s *Store) Get(ctx context.Context, scope sync.Scope, field string, position int) (Row, error) {
	var row Row

	err := s.db.QueryRowContext(ctx, sqlGetValue,
		scope.Project, field, scope.SetPrefix, scope.SetIndex, position,
	).Scan(&row.Text, &row.XRef)

	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrNotFound
	}

	if err != nil {
		return Row{}, fmt.Errorf("store: reading %s position %d in %s: %w", field, position, scope, err)
	}

	return row, nil
}

// ListPositions returns the live positions present at (scope, field), in
// ascending order.
func (s *Store) ListPositions(ctx context.Context, scope sync.Scope, field string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, sqlListPositions,
		scope.Project, field, scope.SetPrefix, scope.SetIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("store: listing positions of %s in %s: %w", field, scope, err)
	}
	defer rows.Close()

	var positions []int

	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("store: scanning position: %w", err)
		}

		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listing positions of %s in %s: %w", field, scope, err)
	}

	return positions, nil
}

// Snapshot freezes every live record of a project into a named snapshot.
// The live records remain live; the copies are invisible to the engine.
func (s *Store) Snapshot(ctx context.Context, project, snapshotID string) error {
	now := s.nowFunc().UnixNano()

	_, err := s.db.ExecContext(ctx, sqlSnapshot, snapshotID, now, project)
	if err != nil {
		return fmt.Errorf("store: snapshotting project %s: %w", project, err)
	}

	return nil
}

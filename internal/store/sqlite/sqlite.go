// Package sqlite is the embedded-SQLite implementation of the engine's
// Store contract (spec §4.2): transactional plugin/posting/relationship
// persistence, an FTS5-backed full-text projection, and the analytics and
// recommendation-cache tables. Modeled on the teacher's
// internal/storage/ephemeral package (_teacherref/storage/ephemeral): a
// single-writer pure-Go SQLite database opened with WAL and a busy
// timeout, schema applied as one raw-string transaction, no ORM.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store is the embedded-SQLite backing store for the plugin discovery
// engine. All multi-row writes execute inside a single transaction
// (spec §4.2); readers see either the pre- or post-state, never a mix.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open creates or opens the SQLite database at path, applying the schema
// if it is not already present.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// A single writer, as the teacher's ephemeral store does: SQLite
	// serializes writers anyway, and this avoids "database is locked"
	// surfacing as spurious pool contention instead of a real retry case.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w\nSQL: %s", err, stmt)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path (or ":memory:").
func (s *Store) Path() string { return s.path }

// DB exposes the underlying *sql.DB for analytics aggregate queries that
// don't warrant a dedicated method.
func (s *Store) DB() *sql.DB { return s.db }

// withTx runs fn inside a transaction, retrying with exponential backoff
// on a busy/locked database — the same pattern the teacher's
// internal/storage/dolt store uses around its own transient write
// failures, adapted here to SQLITE_BUSY instead of a catalog-server error
// (_teacherref does not carry this file verbatim; cited in DESIGN.md).
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	op := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		var perm *backoff.PermanentError
		if ok := asPermanent(err, &perm); ok {
			return perm.Err
		}
		return err
	}
	return nil
}

func asPermanent(err error, target **backoff.PermanentError) bool {
	for err != nil {
		if p, ok := err.(*backoff.PermanentError); ok {
			*target = p
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Optimize asks SQLite to reclaim space and refresh planner statistics
// (spec §4.3 "Index maintenance"). Idempotent.
func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return wrapDBError("optimize", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return wrapDBError("analyze", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return wrapDBError("vacuum", err)
	}
	return nil
}

// SetMetadata upserts a key/value pair in index_metadata.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return wrapDBError("set metadata", err)
}

// GetMetadata reads a value from index_metadata, reporting false if key
// is absent.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapDBError("get metadata", err)
	}
	return value, true, nil
}

func nowStr() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func timePtrStr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

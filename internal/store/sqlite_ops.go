// sqlite_ops.go provides SQLite connection management and low-level operations.
//
// Separated to isolate SQLite-specific concerns (pragmas, connection pooling,
// driver registration, error translation) from query logic. This is the only
// file that imports the SQLite driver.
//
// Pragmas are set through the DSN so every pooled connection gets them, not
// just the first one. WAL allows concurrent readers during writes, and the
// 5-second busy timeout absorbs short lock contention between writers.
// _txlock=immediate takes the write lock at BEGIN so two read-then-write
// transactions cannot deadlock on lock upgrade.

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jpl-au/tagd/internal/policy"
)

// foldFunc is the SQL name of policy.Fold. Pattern lookups compare folded
// forms with it because SQLite's LIKE only ignores case for ASCII.
const foldFunc = "tag_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, fold)
}

// fold implements tag_fold(x). NULL folds to NULL.
func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return policy.Fold(v), nil
	case []byte:
		return policy.Fold(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument %T", foldFunc, v)
	}
}

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// SQLiteStore implements Store using SQLite with WAL mode for concurrent access.
type SQLiteStore struct {
	db     *sqlx.DB
	policy policy.Policy
}

var _ Store = (*SQLiteStore)(nil)

// dsn builds the connection string for path with per-connection pragmas.
func dsn(path string) string {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	if path == MemoryPath {
		return "file::memory:?" + pragmas
	}
	return "file:" + path + "?" + pragmas +
		"&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

// Open opens the SQLite database file at path and returns a configured
// SQLiteStore using pol for name comparison. The caller should call Init
// before use and Close when done.
func Open(path string, pol policy.Policy) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// Each in-memory connection is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	return &SQLiteStore{db: db, policy: pol}, nil
}

// Init creates tables and indexes if they don't exist and records the case
// policy on first use. Safe to call multiple times. Returns
// ErrPolicyMismatch if the store was initialised under a different policy.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if err := execSchema(ctx, s.db); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		settingPolicy, s.policy.Mode()); err != nil {
		return fmt.Errorf("record case policy: %w", err)
	}

	var mode string
	if err := s.db.GetContext(ctx, &mode,
		`SELECT value FROM settings WHERE key = ?`, settingPolicy); err != nil {
		return fmt.Errorf("read case policy: %w", err)
	}
	if mode != s.policy.Mode() {
		return fmt.Errorf("%w: store is %s, opened as %s", ErrPolicyMismatch, mode, s.policy.Mode())
	}
	return nil
}

// PeekPolicy reads the case policy recorded in the database at path without
// initialising it. Reports false when the database has no recorded policy.
func PeekPolicy(ctx context.Context, path string) (policy.Policy, bool, error) {
	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return policy.Policy{}, false, fmt.Errorf("open database %s: %w", path, err)
	}
	defer db.Close()

	var mode string
	err = db.GetContext(ctx, &mode, `SELECT value FROM settings WHERE key = ?`, settingPolicy)
	if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
		return policy.Policy{}, false, nil
	}
	if err != nil {
		return policy.Policy{}, false, fmt.Errorf("read case policy: %w", err)
	}
	p, ok := policy.FromMode(mode)
	if !ok {
		return policy.Policy{}, false, fmt.Errorf("unknown case policy %q", mode)
	}
	return p, true, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for maintenance and tests.
func (s *SQLiteStore) DB() *sqlx.DB {
	return s.db
}

// Policy returns the comparison policy the store was opened with.
func (s *SQLiteStore) Policy() policy.Policy {
	return s.policy
}

// Tx executes fn within a database transaction, handling Begin/Commit/Rollback
// automatically. If fn returns an error the transaction is rolled back and the
// error is returned unchanged, so sentinels like ErrConstraint survive.
//
//	err := s.Tx(ctx, func(tx *sqlx.Tx) error {
//	    if _, err := tx.ExecContext(ctx, `UPDATE ...`); err != nil {
//	        return err  // triggers rollback
//	    }
//	    return nil  // triggers commit
//	})
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", translate(err))
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure from the SQLite driver.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	// Older builds report the primary code only.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(se.Error(), "UNIQUE")
}

// isMissingTable reports whether err is SQLite's "no such table" error.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// translate maps driver uniqueness errors to ErrConstraint, keeping the
// driver error in the chain for diagnostics.
func translate(err error) error {
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

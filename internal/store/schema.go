// schema.go defines the SQLite database schema and provides schema execution helpers.
//
// Schema files are embedded from the sql/ directory and executed in alphabetical
// order (hence the numeric prefixes like 001_, 002_). Each file uses IF NOT
// EXISTS so Init is idempotent.

package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jmoiron/sqlx"
)

//go:embed sql/*.sql
var schemas embed.FS

var (
	// ErrNotFound indicates the requested tag does not exist.
	ErrNotFound = errors.New("tag not found")
	// ErrConstraint reports a uniqueness violation on insert or update.
	// Backends translate their driver-specific errors to this sentinel so
	// the resolver can detect lost create races without knowing the driver.
	ErrConstraint = errors.New("uniqueness constraint violated")
	// ErrPolicyMismatch is returned when a store is opened with a case
	// policy different from the one recorded at init time.
	ErrPolicyMismatch = errors.New("case policy does not match store")
)

// settingPolicy is the settings key recording the store's case policy.
const settingPolicy = "case_policy"

// ExecEmbedded executes all .sql files from an embedded filesystem in alphabetical order.
// The dir parameter specifies the directory within the embed.FS to read from.
func ExecEmbedded(ctx context.Context, db *sqlx.DB, fsys embed.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read schema directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := dir + "/" + entry.Name()
		data, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// execSchema executes the embedded core schema files.
func execSchema(ctx context.Context, db *sqlx.DB) error {
	return ExecEmbedded(ctx, db, schemas, "sql")
}

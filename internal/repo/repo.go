// Package repo provides repository initialisation and discovery for tagd.
//
// A tagd repository is a .tagd directory holding one or more SQLite
// databases. Discovery mirrors git: starting from the working directory,
// walk up until a .tagd directory containing the target database is found,
// or the filesystem root is reached.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/store"
)

const (
	// Dir is the directory name for the tagd repository.
	Dir = ".tagd"
	// DBFile is the default database filename.
	DBFile = "tagd.db"
)

// ErrNotInitialised is returned when no tagd repository is found.
var ErrNotInitialised = errors.New("tagd not initialised (run 'tagd init')")

// DBFileName returns the database filename for a given name.
// Empty name returns the default "tagd.db"; "work" returns "tagd-work.db".
// A name already ending in ".db" is returned as-is.
func DBFileName(name string) string {
	if name == "" {
		return DBFile
	}
	if strings.HasSuffix(name, ".db") {
		return name
	}
	return "tagd-" + name + ".db"
}

// Init creates the .tagd directory under dir (current directory when empty)
// and a database initialised with pol. The case policy is fixed from this
// point on. force replaces an existing database.
func Init(ctx context.Context, force bool, db, dir string, pol policy.Policy) (string, error) {
	if dir == "" {
		dir = "."
	}
	tagdDir := filepath.Join(dir, Dir)
	dbPath := filepath.Join(tagdDir, DBFileName(db))

	if _, err := os.Stat(dbPath); err == nil {
		if !force {
			return "", fmt.Errorf("database %s already exists (use --force to reinitialise)", DBFileName(db))
		}
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("remove database: %w", err)
			}
		}
	}

	if err := os.MkdirAll(tagdDir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	s, err := store.Open(dbPath, pol)
	if err != nil {
		return "", fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	if err := s.Init(ctx); err != nil {
		return "", fmt.Errorf("init store: %w", err)
	}
	if err := s.Checkpoint(ctx); err != nil {
		return "", err
	}

	// Local config may hold a postgres DSN; keep it out of version control.
	gitignore := filepath.Join(tagdDir, ".gitignore")
	if _, err := os.Stat(gitignore); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(gitignore, []byte("config.yaml\n*.db-wal\n*.db-shm\n"), 0644); err != nil {
			return "", fmt.Errorf("write gitignore: %w", err)
		}
	}

	return dbPath, nil
}

// Discover walks up the directory tree looking for a .tagd database.
// The db parameter names the database (empty for default).
func Discover(db string) (string, error) {
	dbFile := DBFileName(db)
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		dbPath := filepath.Join(dir, Dir, dbFile)
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotInitialised
		}
		dir = parent
	}
}

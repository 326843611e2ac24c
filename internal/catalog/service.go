// Package catalog provides the tag Service backed by a store.Store. It owns
// backend selection, the case policy decision at startup and the resolver
// wiring, and exposes the operations defined by service.Service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jpl-au/tagd/internal/config"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/repo"
	"github.com/jpl-au/tagd/internal/resolve"
	"github.com/jpl-au/tagd/internal/service"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/store/pgstore"
)

// Options selects the database and overrides configuration.
type Options struct {
	DB     string       // Database name (empty for default)
	Dir    string       // Directory holding .tagd; empty walks up from the working directory
	Strict *bool        // Case policy override; nil defers to config, then the store
	Logger *slog.Logger // Diagnostics for resolver failures; nil uses slog.Default()
}

// Service provides tag operations backed by a Store.
type Service struct {
	store    store.Store
	resolver *resolve.Resolver
	dbPath   string
	limit    int
}

var _ service.Service = (*Service)(nil)

// New opens the configured store. For SQLite the database is found by
// walking up the directory tree (or under opts.Dir); ErrNotInitialised is
// returned when none exists. The store is migrated and its recorded case
// policy checked before New returns.
func New(ctx context.Context, opts Options) (*Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err // config.Load provides detailed, actionable error messages
	}

	var (
		s      store.Store
		dbPath string
	)
	switch cfg.Driver() {
	case config.DriverPostgres:
		pg, err := pgstore.Open(cfg.Store.DSN, policy.Folded())
		if err != nil {
			return nil, err
		}
		recorded, ok, err := pg.PeekPolicy(ctx)
		if err != nil {
			pg.Close()
			return nil, err
		}
		if !ok {
			recorded = policy.Folded()
		}
		pg = pg.WithPolicy(choosePolicy(opts.Strict, cfg, recorded))
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		s, dbPath = pg, config.DriverPostgres
	default:
		dbPath, err = locate(opts.Dir, opts.DB)
		if err != nil {
			return nil, err
		}
		recorded, ok, err := store.PeekPolicy(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			recorded = policy.Folded()
		}
		lite, err := store.Open(dbPath, choosePolicy(opts.Strict, cfg, recorded))
		if err != nil {
			return nil, err
		}
		if err := lite.Init(ctx); err != nil {
			lite.Close()
			return nil, err
		}
		s = lite
	}

	svc := FromStore(s, cfg.DefaultLimit(), resolve.WithLogger(opts.Logger))
	svc.dbPath = dbPath
	return svc, nil
}

// FromStore wraps an already initialised store. limit is the default for
// usage queries; zero or less falls back to store.DefaultLimit.
func FromStore(s store.Store, limit int, opts ...resolve.Option) *Service {
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	return &Service{
		store:    s,
		resolver: resolve.New(s, opts...),
		limit:    limit,
	}
}

// ErrForceUnsupported is returned by Init when force is requested for a
// Postgres store.
var ErrForceUnsupported = errors.New("--force is not supported for the postgres driver; drop the tags, taggings and settings tables to reinitialise")

// Init creates a new tagd store and records its case policy. For SQLite the
// database is created under dir (current directory when empty); for
// Postgres the schema is migrated in the configured database and force is
// rejected with ErrForceUnsupported. Returns the database location and the
// policy recorded.
func Init(ctx context.Context, force bool, db, dir string, strict *bool) (string, policy.Policy, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", policy.Policy{}, err
	}
	pol := choosePolicy(strict, cfg, policy.Folded())

	if cfg.Driver() == config.DriverPostgres {
		if force {
			return "", pol, ErrForceUnsupported
		}
		pg, err := pgstore.Open(cfg.Store.DSN, pol)
		if err != nil {
			return "", pol, err
		}
		defer pg.Close()
		if err := pg.Init(ctx); err != nil {
			return "", pol, err
		}
		return config.DriverPostgres, pol, nil
	}
	path, err := repo.Init(ctx, force, db, dir, pol)
	return path, pol, err
}

// choosePolicy picks the case policy: an explicit override, then
// configuration, then fallback.
func choosePolicy(strict *bool, cfg *config.Config, fallback policy.Policy) policy.Policy {
	if strict != nil {
		return policy.New(*strict)
	}
	if cfg.IsSet("tags.strict_case_match") {
		return policy.New(cfg.StrictCaseMatch())
	}
	return fallback
}

// locate returns the database path under dir, or discovers it when dir is empty.
func locate(dir, db string) (string, error) {
	if dir == "" {
		return repo.Discover(db)
	}
	dbPath := filepath.Join(dir, repo.Dir, repo.DBFileName(db))
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return "", repo.ErrNotInitialised
	} else if err != nil {
		return "", fmt.Errorf("stat database: %w", err)
	}
	return dbPath, nil
}

// Close checkpoints the WAL when the store supports it and closes the
// connection.
func (s *Service) Close() error {
	if c, ok := s.store.(interface{ Checkpoint(context.Context) error }); ok {
		if err := c.Checkpoint(context.Background()); err != nil {
			log.Event("service:close", "checkpoint").
				Detail("error", err.Error()).
				Write(err)
		}
	}
	return s.store.Close()
}

// Policy returns the case policy the store was opened with.
func (s *Service) Policy() policy.Policy {
	return s.store.Policy()
}

// DefaultLimit returns the configured cap for usage queries.
func (s *Service) DefaultLimit() int {
	return s.limit
}

// DBPath returns the path to the database file.
func (s *Service) DBPath() string {
	return s.dbPath
}

// Store exposes the underlying store for maintenance commands.
func (s *Service) Store() store.Store {
	return s.store
}

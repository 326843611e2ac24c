// Package service defines the shared interface for tag operations.
// Commands, extensions and the MCP and HTTP servers depend on this interface
// rather than the concrete catalog, enabling testing against in-memory stores
// and the choice of storage backend at startup.
package service

import (
	"context"

	"github.com/jpl-au/tagd/internal/backfill"
	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/store"
)

// Service defines all tag operations.
//
// Use catalog.New() to obtain a Service implementation and always call
// Close() when done.
//
// Example:
//
//	svc, err := catalog.New(ctx, catalog.Options{})
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//	tags, err := svc.Resolve(ctx, []string{"Go", "sqlite"}, "")
type Service interface {
	// Close releases database resources. Always defer this after New().
	Close() error

	// Policy returns the case policy the store was opened with.
	Policy() policy.Policy

	// DefaultLimit returns the configured cap for usage queries.
	DefaultLimit() int

	// DBPath returns the SQLite file path, or the backend name when the
	// store is not file based.
	DBPath() string

	// Resolve returns one tag per name in input order, creating missing
	// tags with the given category. Concurrent creators of the same name
	// converge on a single row.
	Resolve(ctx context.Context, names []string, category string) ([]store.Tag, error)

	// ResolveOne resolves a single name. Under the folded policy an existing
	// tag whose name contains name is returned in preference to creating one.
	ResolveOne(ctx context.Context, name, category string) (*store.Tag, error)

	// Find returns the existing tags matching any name exactly under the
	// case policy. Nothing is created.
	Find(ctx context.Context, names []string) ([]store.Tag, error)

	// Search returns tags whose name contains any of the patterns,
	// case-insensitively. Wildcards in patterns are matched literally.
	Search(ctx context.Context, patterns []string) ([]store.Tag, error)

	// Lookup returns a tag by numeric id or by exact name.
	// Returns store.ErrNotFound if neither matches.
	Lookup(ctx context.Context, ref string) (*store.Tag, error)

	// List returns every tag ordered by name.
	List(ctx context.Context) ([]store.Tag, error)

	// MostUsed returns up to limit tags by descending usage. A limit of
	// zero or less uses DefaultLimit.
	MostUsed(ctx context.Context, limit int) ([]store.Tag, error)

	// LeastUsed returns up to limit tags by ascending usage.
	LeastUsed(ctx context.Context, limit int) ([]store.Tag, error)

	// ForContext returns tags used at least once in the named context.
	ForContext(ctx context.Context, name string) ([]store.Tag, error)

	// WithCategories returns tags in any of the categories with the given
	// enabled state.
	WithCategories(ctx context.Context, categories []string, enabled bool) ([]store.Tag, error)

	// Rename changes a tag's name. Reports false if the id is unknown.
	// Returns store.ErrConstraint if the new name belongs to another tag.
	Rename(ctx context.Context, id int64, name string) (bool, error)

	// SetEnabled enables or disables a tag. Reports false if the id is unknown.
	SetEnabled(ctx context.Context, id int64, enabled bool) (bool, error)

	// Delete removes a tag together with its associations.
	Delete(ctx context.Context, id int64) error

	// Attach resolves names, creating missing tags, and associates each
	// with the entity in t. Returns the tags and how many associations
	// were new.
	Attach(ctx context.Context, t store.Tagging, names []string) ([]store.Tag, int, error)

	// Detach removes the associations between the entity in t and the
	// existing tags matching names. Returns the matched tags and how many
	// associations were removed.
	Detach(ctx context.Context, t store.Tagging, names []string) ([]store.Tag, int, error)

	// TagsFor returns the tags attached to an entity. An empty tagContext
	// means every context.
	TagsFor(ctx context.Context, taggableType, taggableID, tagContext string) ([]store.Tag, error)

	// Backfill assigns external ids to tags lacking one, calling onStep
	// after each row.
	Backfill(ctx context.Context, onStep func(backfill.Step)) (backfill.Result, error)

	// Stats returns aggregate counts for operational visibility.
	Stats(ctx context.Context) (*store.Stats, error)
}

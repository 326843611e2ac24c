// interfaces.go defines the storage abstraction for tag persistence.
//
// Separated from the SQLite implementation so the Postgres backend and test
// doubles can satisfy the same contract. The interfaces are granular so
// consumers depend only on what they use; the resolver, for example, needs
// nothing beyond a Finder and Create.

package store

import (
	"context"

	"github.com/jpl-au/tagd/internal/policy"
)

// Finder defines name lookups. Exact lookups compare normalised keys under
// the store's policy; pattern lookups are case-insensitive substring matches
// with LIKE wildcards in the input escaped.
type Finder interface {
	// Policy returns the comparison policy the store was opened with.
	Policy() policy.Policy

	// FindExact returns the tag whose key equals the key of name, or
	// ErrNotFound.
	FindExact(ctx context.Context, name string) (*Tag, error)

	// FindAnyExact returns every tag whose key equals the key of any name,
	// using a single query.
	FindAnyExact(ctx context.Context, names []string) ([]Tag, error)

	// FindByPattern returns tags whose name contains name, ordered by id.
	FindByPattern(ctx context.Context, name string) ([]Tag, error)

	// FindAnyByPattern returns tags whose name contains any of names.
	FindAnyByPattern(ctx context.Context, names []string) ([]Tag, error)
}

// Reader defines the remaining read-only queries.
type Reader interface {
	Finder

	// ByID returns a tag by id, or ErrNotFound.
	ByID(ctx context.Context, id int64) (*Tag, error)

	// FindByContext returns distinct tags with at least one association in
	// the given context.
	FindByContext(ctx context.Context, name string) ([]Tag, error)

	// MostUsed returns up to limit tags ordered by usage_count descending.
	MostUsed(ctx context.Context, limit int) ([]Tag, error)

	// LeastUsed returns up to limit tags ordered by usage_count ascending.
	LeastUsed(ctx context.Context, limit int) ([]Tag, error)

	// WithCategories returns tags in any of categories with the given
	// enabled state.
	WithCategories(ctx context.Context, categories []string, enabled bool) ([]Tag, error)

	// List returns all tags ordered by name key.
	List(ctx context.Context) ([]Tag, error)

	// Stats returns aggregate counts.
	Stats(ctx context.Context) (*Stats, error)
}

// Writer defines operations that modify tags.
type Writer interface {
	// Create inserts a new tag. A uniqueness violation is reported as
	// ErrConstraint after the failed insert has been rolled back.
	Create(ctx context.Context, name string, opts CreateOptions) (*Tag, error)

	// Rename overwrites a tag's name. Reports false without error when the
	// id does not exist. A collision with another tag returns ErrConstraint.
	Rename(ctx context.Context, id int64, name string) (bool, error)

	// SetEnabled sets the enabled flag. Reports false without error when the
	// id does not exist.
	SetEnabled(ctx context.Context, id int64, enabled bool) (bool, error)

	// Delete removes a tag and its taggings.
	Delete(ctx context.Context, id int64) error
}

// Backfiller defines the operations used by the external id backfill.
type Backfiller interface {
	// CountMissingExternalIDs returns how many tags lack an external id.
	CountMissingExternalIDs(ctx context.Context) (int64, error)

	// MissingExternalIDs returns up to limit tags lacking an external id with
	// id greater than afterID, in id order.
	MissingExternalIDs(ctx context.Context, afterID int64, limit int) ([]Tag, error)

	// SetExternalID assigns an external id to a tag that has none. Reports
	// false when the tag is missing or already has one.
	SetExternalID(ctx context.Context, id int64, externalID string) (bool, error)
}

// Tagger defines the association operations.
type Tagger interface {
	// Attach associates a tag with an entity, incrementing usage_count.
	// Reports false when the association already existed.
	Attach(ctx context.Context, tagID int64, t Tagging) (bool, error)

	// Detach removes an association, decrementing usage_count. Reports
	// false when it did not exist.
	Detach(ctx context.Context, tagID int64, t Tagging) (bool, error)

	// TagsFor returns the tags attached to an entity, optionally filtered
	// by context (empty context means all contexts).
	TagsFor(ctx context.Context, taggableType, taggableID, tagContext string) ([]Tag, error)
}

// Maintainer defines lifecycle operations.
type Maintainer interface {
	// Close releases the database connection.
	Close() error
}

// Store defines the persistence interface for tags.
type Store interface {
	Reader
	Writer
	Backfiller
	Tagger
	Maintainer
}

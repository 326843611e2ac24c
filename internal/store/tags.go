// tags.go implements the read side of the tag query surface.
//
// Exact lookups go through name_key so they agree with the unique index
// under either case policy. Pattern lookups ignore case under both
// policies and compare tag_fold(name) with the folded pattern, since
// SQLite's LIKE only folds ASCII.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jpl-au/tagd/internal/policy"
)

// tagColumns selects a full Tag with nullable columns flattened.
const tagColumns = `t.id, t.name, t.name_key, COALESCE(t.external_id, '') AS external_id,
	COALESCE(t.category, '') AS category, t.enabled, t.usage_count, t.created_at`

// FindExact returns the tag whose key equals the key of name.
func (s *SQLiteStore) FindExact(ctx context.Context, name string) (*Tag, error) {
	var t Tag
	err := s.db.GetContext(ctx, &t,
		`SELECT `+tagColumns+` FROM tags t WHERE t.name_key = ?`, s.policy.Key(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find tag %q: %w", name, err)
	}
	return &t, nil
}

// FindAnyExact returns every tag whose key equals the key of any name. The
// lookup is a single query with one predicate per distinct key.
func (s *SQLiteStore) FindAnyExact(ctx context.Context, names []string) ([]Tag, error) {
	keys := s.policy.Keys(names)
	if len(keys) == 0 {
		return []Tag{}, nil
	}

	conds := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		conds[i] = `t.name_key = ?`
		args[i] = k
	}

	q := `SELECT ` + tagColumns + ` FROM tags t WHERE ` + strings.Join(conds, ` OR `) + ` ORDER BY t.id`
	return s.selectTags(ctx, "find tags", q, args...)
}

// FindByPattern returns tags whose name contains name, ordered by id.
func (s *SQLiteStore) FindByPattern(ctx context.Context, name string) ([]Tag, error) {
	return s.FindAnyByPattern(ctx, []string{name})
}

// FindAnyByPattern returns tags whose name contains any of names, ordered
// by id.
func (s *SQLiteStore) FindAnyByPattern(ctx context.Context, names []string) ([]Tag, error) {
	if len(names) == 0 {
		return []Tag{}, nil
	}

	var conds []string
	var args []any
	for _, n := range names {
		conds = append(conds, foldFunc+`(t.name) LIKE ? ESCAPE '!'`)
		args = append(args, containsPattern(policy.Fold(n)))
	}

	q := `SELECT ` + tagColumns + ` FROM tags t WHERE ` + strings.Join(conds, ` OR `) + ` ORDER BY t.id`
	return s.selectTags(ctx, "find tags by pattern", q, args...)
}

// ByID returns a tag by id.
func (s *SQLiteStore) ByID(ctx context.Context, id int64) (*Tag, error) {
	var t Tag
	err := s.db.GetContext(ctx, &t, `SELECT `+tagColumns+` FROM tags t WHERE t.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %d: %w", id, err)
	}
	return &t, nil
}

// FindByContext returns distinct tags with at least one association in
// the named context, ordered by id.
func (s *SQLiteStore) FindByContext(ctx context.Context, name string) ([]Tag, error) {
	q := `SELECT DISTINCT ` + tagColumns + `
		FROM tags t
		INNER JOIN taggings g ON g.tag_id = t.id
		WHERE g.context = ?
		ORDER BY t.id`
	return s.selectTags(ctx, "find tags by context", q, name)
}

// MostUsed returns up to limit tags by usage_count descending, ties by id.
func (s *SQLiteStore) MostUsed(ctx context.Context, limit int) ([]Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags t ORDER BY t.usage_count DESC, t.id LIMIT ?`
	return s.selectTags(ctx, "most used tags", q, normLimit(limit))
}

// LeastUsed returns up to limit tags by usage_count ascending, ties by id.
func (s *SQLiteStore) LeastUsed(ctx context.Context, limit int) ([]Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags t ORDER BY t.usage_count ASC, t.id LIMIT ?`
	return s.selectTags(ctx, "least used tags", q, normLimit(limit))
}

// WithCategories returns tags in any of categories with the given enabled
// state, ordered by id. No categories matches nothing.
func (s *SQLiteStore) WithCategories(ctx context.Context, categories []string, enabled bool) ([]Tag, error) {
	if len(categories) == 0 {
		return []Tag{}, nil
	}
	q, args, err := sqlx.In(
		`SELECT `+tagColumns+` FROM tags t WHERE t.category IN (?) AND t.enabled = ? ORDER BY t.id`,
		categories, enabled)
	if err != nil {
		return nil, fmt.Errorf("build category query: %w", err)
	}
	return s.selectTags(ctx, "tags by category", s.db.Rebind(q), args...)
}

// List returns all tags ordered by name key.
func (s *SQLiteStore) List(ctx context.Context) ([]Tag, error) {
	return s.selectTags(ctx, "list tags", `SELECT `+tagColumns+` FROM tags t ORDER BY t.name_key, t.id`)
}

// TagsFor returns the tags attached to an entity. An empty context matches
// every context.
func (s *SQLiteStore) TagsFor(ctx context.Context, taggableType, taggableID, tagContext string) ([]Tag, error) {
	q := `SELECT DISTINCT ` + tagColumns + `
		FROM tags t
		INNER JOIN taggings g ON g.tag_id = t.id
		WHERE g.taggable_type = ? AND g.taggable_id = ?`
	args := []any{taggableType, taggableID}
	if tagContext != "" {
		q += ` AND g.context = ?`
		args = append(args, tagContext)
	}
	q += ` ORDER BY t.id`
	return s.selectTags(ctx, "tags for entity", q, args...)
}

// selectTags runs q and returns the rows as tags. Never returns a nil slice
// on success.
func (s *SQLiteStore) selectTags(ctx context.Context, op, q string, args ...any) ([]Tag, error) {
	tags := []Tag{}
	if err := s.db.SelectContext(ctx, &tags, q, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tags, nil
}

// normLimit applies DefaultLimit to non-positive limits.
func normLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

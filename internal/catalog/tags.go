package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpl-au/tagd/internal/backfill"
	"github.com/jpl-au/tagd/internal/resolve"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/validate"
)

// Resolve returns one tag per name, creating missing tags.
func (s *Service) Resolve(ctx context.Context, names []string, category string) ([]store.Tag, error) {
	return s.resolver.ResolveOrCreate(ctx, names, resolve.Options{Category: category})
}

// ResolveOne resolves a single name.
func (s *Service) ResolveOne(ctx context.Context, name, category string) (*store.Tag, error) {
	return s.resolver.ResolveOrCreateOne(ctx, name, resolve.Options{Category: category})
}

// Find returns the existing tags matching any of names exactly.
func (s *Service) Find(ctx context.Context, names []string) ([]store.Tag, error) {
	if len(names) == 0 {
		return []store.Tag{}, nil
	}
	return s.store.FindAnyExact(ctx, names)
}

// Search returns tags whose name contains any of patterns.
func (s *Service) Search(ctx context.Context, patterns []string) ([]store.Tag, error) {
	if len(patterns) == 0 {
		return []store.Tag{}, nil
	}
	return s.store.FindAnyByPattern(ctx, patterns)
}

// Lookup returns a tag by id or exact name. A numeric ref is tried as an id
// first, so a tag literally named "42" is still reachable when no tag has
// id 42.
func (s *Service) Lookup(ctx context.Context, ref string) (*store.Tag, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", validate.ErrInvalidTag)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		t, err := s.store.ByID(ctx, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return s.store.FindExact(ctx, ref)
}

// List returns every tag ordered by name.
func (s *Service) List(ctx context.Context) ([]store.Tag, error) {
	return s.store.List(ctx)
}

// MostUsed returns the most used tags.
func (s *Service) MostUsed(ctx context.Context, limit int) ([]store.Tag, error) {
	return s.store.MostUsed(ctx, s.normLimit(limit))
}

// LeastUsed returns the least used tags.
func (s *Service) LeastUsed(ctx context.Context, limit int) ([]store.Tag, error) {
	return s.store.LeastUsed(ctx, s.normLimit(limit))
}

func (s *Service) normLimit(limit int) int {
	if limit <= 0 {
		return s.limit
	}
	return limit
}

// ForContext returns tags used in the named context.
func (s *Service) ForContext(ctx context.Context, name string) ([]store.Tag, error) {
	return s.store.FindByContext(ctx, name)
}

// WithCategories returns tags in any of categories with the given enabled state.
func (s *Service) WithCategories(ctx context.Context, categories []string, enabled bool) ([]store.Tag, error) {
	return s.store.WithCategories(ctx, categories, enabled)
}

// Rename changes a tag's name. Collisions are not retried.
func (s *Service) Rename(ctx context.Context, id int64, name string) (bool, error) {
	return s.store.Rename(ctx, id, name)
}

// SetEnabled enables or disables a tag.
func (s *Service) SetEnabled(ctx context.Context, id int64, enabled bool) (bool, error) {
	return s.store.SetEnabled(ctx, id, enabled)
}

// Delete removes a tag and its associations.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Attach resolves names and associates the tags with the entity in t. The
// tagging is validated before any tag is created.
func (s *Service) Attach(ctx context.Context, t store.Tagging, names []string) ([]store.Tag, int, error) {
	if err := validate.Tagging(t.TaggableType, t.TaggableID, t.Context); err != nil {
		return nil, 0, err
	}
	tags, err := s.Resolve(ctx, names, "")
	if err != nil {
		return nil, 0, err
	}

	added := 0
	for _, tag := range unique(tags) {
		ok, err := s.store.Attach(ctx, tag.ID, t)
		if err != nil {
			return tags, added, fmt.Errorf("attach %q: %w", tag.Name, err)
		}
		if ok {
			added++
		}
	}
	return tags, added, nil
}

// Detach removes the associations between the entity in t and the tags
// matching names. Names with no tag are ignored.
func (s *Service) Detach(ctx context.Context, t store.Tagging, names []string) ([]store.Tag, int, error) {
	if err := validate.Tagging(t.TaggableType, t.TaggableID, t.Context); err != nil {
		return nil, 0, err
	}
	if err := validate.Names(names); err != nil {
		return nil, 0, err
	}
	tags, err := s.Find(ctx, names)
	if err != nil {
		return nil, 0, err
	}

	removed := 0
	for _, tag := range tags {
		ok, err := s.store.Detach(ctx, tag.ID, t)
		if err != nil {
			return tags, removed, fmt.Errorf("detach %q: %w", tag.Name, err)
		}
		if ok {
			removed++
		}
	}
	return tags, removed, nil
}

// TagsFor returns the tags attached to an entity.
func (s *Service) TagsFor(ctx context.Context, taggableType, taggableID, tagContext string) ([]store.Tag, error) {
	return s.store.TagsFor(ctx, taggableType, taggableID, tagContext)
}

// Backfill assigns external ids to tags lacking one.
func (s *Service) Backfill(ctx context.Context, onStep func(backfill.Step)) (backfill.Result, error) {
	return backfill.Run(ctx, s.store, onStep)
}

// Stats returns aggregate counts.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}

// unique drops repeated tags, keeping first occurrences.
func unique(tags []store.Tag) []store.Tag {
	seen := make(map[int64]bool, len(tags))
	out := make([]store.Tag, 0, len(tags))
	for _, t := range tags {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

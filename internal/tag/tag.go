// Package tag provides tag operations for the CLI layer.
//
// This package orchestrates resolve, query, update and association
// operations, handling both the service calls and output formatting. Each
// function returns a result struct suitable for JSON output.
package tag

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jpl-au/tagd/internal/backfill"
	"github.com/jpl-au/tagd/internal/diff"
	"github.com/jpl-au/tagd/internal/format"
	"github.com/jpl-au/tagd/internal/progress"
	"github.com/jpl-au/tagd/internal/service"
	"github.com/jpl-au/tagd/internal/store"
)

// ListResult contains the tags returned by a query.
type ListResult struct {
	Action string          `json:"action"`
	Query  []string        `json:"query,omitempty"`
	Count  int             `json:"count"`
	Tags   []store.TagJSON `json:"tags"`
}

func listResult(action string, query []string, tags []store.Tag) ListResult {
	return ListResult{Action: action, Query: query, Count: len(tags), Tags: store.TagsJSON(tags)}
}

// Resolve resolves names to tags, creating the missing ones.
func Resolve(ctx context.Context, w io.Writer, svc service.Service, names []string, category string) (ListResult, error) {
	tags, err := svc.Resolve(ctx, names, category)
	if err != nil {
		return ListResult{Action: "resolve", Query: names}, err
	}
	_ = format.List(w, tags)
	return listResult("resolve", names, tags), nil
}

// Find prints the existing tags matching names exactly.
func Find(ctx context.Context, w io.Writer, svc service.Service, names []string, style format.Style) (ListResult, error) {
	tags, err := svc.Find(ctx, names)
	return printList(w, "find", names, tags, style, err)
}

// Search prints tags whose name contains any of patterns.
func Search(ctx context.Context, w io.Writer, svc service.Service, patterns []string, style format.Style) (ListResult, error) {
	tags, err := svc.Search(ctx, patterns)
	return printList(w, "search", patterns, tags, style, err)
}

// List prints every tag.
func List(ctx context.Context, w io.Writer, svc service.Service, style format.Style) (ListResult, error) {
	tags, err := svc.List(ctx)
	return printList(w, "list", nil, tags, style, err)
}

// Top prints the most used tags.
func Top(ctx context.Context, w io.Writer, svc service.Service, limit int, style format.Style) (ListResult, error) {
	tags, err := svc.MostUsed(ctx, limit)
	return printList(w, "most_used", nil, tags, style, err)
}

// Bottom prints the least used tags.
func Bottom(ctx context.Context, w io.Writer, svc service.Service, limit int, style format.Style) (ListResult, error) {
	tags, err := svc.LeastUsed(ctx, limit)
	return printList(w, "least_used", nil, tags, style, err)
}

// ForContext prints tags used in the named context.
func ForContext(ctx context.Context, w io.Writer, svc service.Service, name string, style format.Style) (ListResult, error) {
	tags, err := svc.ForContext(ctx, name)
	return printList(w, "context", []string{name}, tags, style, err)
}

// Category prints tags in any of categories with the given enabled state.
func Category(ctx context.Context, w io.Writer, svc service.Service, categories []string, enabled bool, style format.Style) (ListResult, error) {
	tags, err := svc.WithCategories(ctx, categories, enabled)
	return printList(w, "category", categories, tags, style, err)
}

func printList(w io.Writer, action string, query []string, tags []store.Tag, style format.Style, err error) (ListResult, error) {
	if err != nil {
		return ListResult{Action: action, Query: query, Tags: []store.TagJSON{}}, err
	}
	if err := format.Tags(w, tags, style); err != nil {
		return ListResult{}, err
	}
	return listResult(action, query, tags), nil
}

// UpdateResult contains the outcome of a rename, enable or disable.
type UpdateResult struct {
	Ref      string         `json:"ref"`
	Action   string         `json:"action"`
	Updated  bool           `json:"updated"`
	Tag      *store.TagJSON `json:"tag,omitempty"`
	Previous string         `json:"previous,omitempty"`
	Diff     string         `json:"diff,omitempty"`
}

// lookup finds the tag for ref. An unknown ref is reported as a warning on w
// and a nil tag, matching the permissive no-op of the store updates.
func lookup(ctx context.Context, w io.Writer, svc service.Service, ref string) (*store.Tag, error) {
	t, err := svc.Lookup(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(w, "warning: no tag %q, nothing changed\n", ref)
		return nil, nil
	}
	return t, err
}

// Rename changes the name of the tag identified by ref (id or name) and
// prints what changed.
func Rename(ctx context.Context, w io.Writer, svc service.Service, ref, name string, colour bool) (UpdateResult, error) {
	result := UpdateResult{Ref: ref, Action: "rename"}

	t, err := lookup(ctx, w, svc, ref)
	if err != nil || t == nil {
		return result, err
	}

	ok, err := svc.Rename(ctx, t.ID, name)
	if err != nil {
		return result, err
	}
	if !ok {
		fmt.Fprintf(w, "warning: tag %d disappeared, nothing changed\n", t.ID)
		return result, nil
	}

	d := diff.Compute(t.Name, name)
	result.Updated = true
	result.Previous = t.Name
	result.Diff = d.Diff
	t.Name = name
	j := t.ToJSON()
	result.Tag = &j

	fmt.Fprintf(w, "Renamed tag %d: %s\n", t.ID, d.Format(colour))
	return result, nil
}

// SetEnabled enables or disables the tag identified by ref.
func SetEnabled(ctx context.Context, w io.Writer, svc service.Service, ref string, enabled bool) (UpdateResult, error) {
	action := "disable"
	if enabled {
		action = "enable"
	}
	result := UpdateResult{Ref: ref, Action: action}

	t, err := lookup(ctx, w, svc, ref)
	if err != nil || t == nil {
		return result, err
	}

	ok, err := svc.SetEnabled(ctx, t.ID, enabled)
	if err != nil {
		return result, err
	}
	if !ok {
		fmt.Fprintf(w, "warning: tag %d disappeared, nothing changed\n", t.ID)
		return result, nil
	}

	result.Updated = true
	t.Enabled = enabled
	j := t.ToJSON()
	result.Tag = &j

	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	fmt.Fprintf(w, "%s tag %q\n", verb, t.Name)
	return result, nil
}

// RemoveResult contains the outcome of a delete.
type RemoveResult struct {
	Ref string         `json:"ref"`
	Tag *store.TagJSON `json:"tag,omitempty"`
}

// Remove deletes the tag identified by ref together with its associations.
// Unlike updates, an unknown ref is an error.
func Remove(ctx context.Context, w io.Writer, svc service.Service, ref string) (RemoveResult, error) {
	result := RemoveResult{Ref: ref}

	t, err := svc.Lookup(ctx, ref)
	if err != nil {
		return result, err
	}
	if err := svc.Delete(ctx, t.ID); err != nil {
		return result, err
	}
	j := t.ToJSON()
	result.Tag = &j

	fmt.Fprintf(w, "Deleted tag %q (%d associations)\n", t.Name, t.UsageCount)
	return result, nil
}

// AttachResult contains the outcome of an attach or detach.
type AttachResult struct {
	Action       string          `json:"action"`
	TaggableType string          `json:"taggable_type"`
	TaggableID   string          `json:"taggable_id"`
	Context      string          `json:"context"`
	Changed      int             `json:"changed"`
	Tags         []store.TagJSON `json:"tags"`
}

// Attach resolves names and associates them with an entity.
func Attach(ctx context.Context, w io.Writer, svc service.Service, t store.Tagging, names []string) (AttachResult, error) {
	result := newAttachResult("attach", t)

	tags, added, err := svc.Attach(ctx, t, names)
	if err != nil {
		return result, err
	}
	result.Changed = added
	result.Tags = store.TagsJSON(tags)

	fmt.Fprintf(w, "Attached %d tag(s) to %s %s in %q\n", added, t.TaggableType, t.TaggableID, t.Context)
	return result, nil
}

// Detach removes associations between an entity and the named tags.
func Detach(ctx context.Context, w io.Writer, svc service.Service, t store.Tagging, names []string) (AttachResult, error) {
	result := newAttachResult("detach", t)

	tags, removed, err := svc.Detach(ctx, t, names)
	if err != nil {
		return result, err
	}
	result.Changed = removed
	result.Tags = store.TagsJSON(tags)

	fmt.Fprintf(w, "Detached %d tag(s) from %s %s in %q\n", removed, t.TaggableType, t.TaggableID, t.Context)
	return result, nil
}

func newAttachResult(action string, t store.Tagging) AttachResult {
	return AttachResult{
		Action:       action,
		TaggableType: t.TaggableType,
		TaggableID:   t.TaggableID,
		Context:      t.Context,
		Tags:         []store.TagJSON{},
	}
}

// TagsFor prints the tags attached to an entity.
func TagsFor(ctx context.Context, w io.Writer, svc service.Service, t store.Tagging, style format.Style) (ListResult, error) {
	tags, err := svc.TagsFor(ctx, t.TaggableType, t.TaggableID, t.Context)
	return printList(w, "tags_for", []string{t.TaggableType, t.TaggableID}, tags, style, err)
}

// Backfill assigns external ids to tags lacking one. newProgress, if not
// nil, creates the progress reporter once the total is known.
func Backfill(ctx context.Context, w io.Writer, svc service.Service, newProgress func(total int64) *progress.Progress) (backfill.Result, error) {
	var p *progress.Progress
	res, err := svc.Backfill(ctx, func(s backfill.Step) {
		if newProgress == nil {
			return
		}
		if p == nil {
			p = newProgress(s.Total)
		}
		if s.Skipped {
			p.Step(fmt.Sprintf("%s: already set", s.Tag.Name))
			return
		}
		p.Step(fmt.Sprintf("%s -> %s", s.Tag.Name, s.ExternalID))
	})
	if p != nil {
		p.Done()
	}
	if err != nil {
		return res, err
	}

	if res.Total == 0 {
		fmt.Fprintln(w, "All tags have external ids")
		return res, nil
	}
	fmt.Fprintf(w, "Assigned %d external id(s), %d skipped\n", res.Updated, res.Skipped)
	return res, nil
}

// Stats prints aggregate counts.
func Stats(ctx context.Context, w io.Writer, svc service.Service) (*store.Stats, error) {
	st, err := svc.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return st, format.Stats(w, st)
}

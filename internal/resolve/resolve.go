// Package resolve turns tag names into persisted tags, creating the ones
// that do not exist yet.
//
// Creation is optimistic: the resolver reads what exists, inserts what is
// missing and relies on the store's unique index to reject a concurrent
// duplicate. A rejected insert is followed by a re-read and a retry, at most
// MaxAttempts times per name. No application lock is held across store calls,
// so any number of processes can resolve against the same store.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/validate"
)

// MaxAttempts bounds create attempts for a single name.
const MaxAttempts = 3

// ErrDuplicateTag matches a *DuplicateTagError with errors.Is.
var ErrDuplicateTag = errors.New("duplicate tag")

// DuplicateTagError reports a name whose creation kept hitting the
// uniqueness constraint while no matching row could be read back.
type DuplicateTagError struct {
	Name     string
	Attempts int
	Err      error // last constraint error from the store
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("tag %q: still conflicting after %d attempts", e.Name, e.Attempts)
}

// Is reports whether target is ErrDuplicateTag.
func (e *DuplicateTagError) Is(target error) bool {
	return target == ErrDuplicateTag
}

func (e *DuplicateTagError) Unwrap() error {
	return e.Err
}

// Store is the subset of store.Store the resolver needs.
type Store interface {
	store.Finder
	Create(ctx context.Context, name string, opts store.CreateOptions) (*store.Tag, error)
}

// Options configures a single resolve call.
type Options struct {
	Category string // Applied to tags created by this call only
}

// Resolver resolves names against a Store.
type Resolver struct {
	store   Store
	unique  func(name string) bool
	onRetry func(name string, attempt int)
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithUniquenessCheck sets the predicate deciding whether a name gets an
// exact lookup right before its insert. Returning false skips the lookup
// and goes straight to the insert. The default checks every name.
func WithUniquenessCheck(fn func(name string) bool) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.unique = fn
		}
	}
}

// WithRetryHook registers fn to be called before each retry, with the
// attempt number that just failed.
func WithRetryHook(fn func(name string, attempt int)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.onRetry = fn
		}
	}
}

// WithLogger sets the logger for exceptional failures. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Resolver backed by s.
func New(s Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:   s,
		unique:  func(string) bool { return true },
		onRetry: func(string, int) {},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Policy returns the comparison policy of the underlying store.
func (r *Resolver) Policy() policy.Policy {
	return r.store.Policy()
}

// ResolveOrCreate returns one tag per input name, in input order, creating
// any that do not exist. Names equal under the store's policy resolve to the
// same tag and are created at most once. All names are validated before the
// store is touched; an empty input returns an empty result without any
// store access.
func (r *Resolver) ResolveOrCreate(ctx context.Context, names []string, opts Options) ([]store.Tag, error) {
	if len(names) == 0 {
		return []store.Tag{}, nil
	}
	if err := validate.Names(names); err != nil {
		return nil, err
	}

	known := make(map[string]store.Tag, len(names))
	if err := r.refresh(ctx, names, known); err != nil {
		return nil, err
	}

	out := make([]store.Tag, 0, len(names))
	for _, name := range names {
		t, err := r.resolve(ctx, name, names, opts, known)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ResolveOrCreateOne resolves a single name. Under a case-insensitive
// policy an existing tag whose name contains name is preferred, the lowest
// id winning; otherwise this is ResolveOrCreate with one name.
func (r *Resolver) ResolveOrCreateOne(ctx context.Context, name string, opts Options) (*store.Tag, error) {
	if err := validate.Name(name); err != nil {
		return nil, err
	}

	if !r.store.Policy().IsStrict() {
		like, err := r.store.FindByPattern(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(like) > 0 {
			return &like[0], nil
		}
	}

	tags, err := r.ResolveOrCreate(ctx, []string{name}, opts)
	if err != nil {
		return nil, err
	}
	return &tags[0], nil
}

// resolve returns the tag for name, creating it if needed and retrying
// after lost create races. batch is the full input, re-read on retry.
func (r *Resolver) resolve(ctx context.Context, name string, batch []string, opts Options, known map[string]store.Tag) (store.Tag, error) {
	key := r.store.Policy().Key(name)

	for attempt := 1; ; attempt++ {
		if t, ok := known[key]; ok {
			return t, nil
		}

		if r.unique(name) {
			t, err := r.store.FindExact(ctx, name)
			if err == nil {
				known[key] = *t
				return *t, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return store.Tag{}, err
			}
		}

		t, err := r.store.Create(ctx, name, store.CreateOptions{Category: opts.Category})
		if err == nil {
			known[key] = *t
			return *t, nil
		}
		if !errors.Is(err, store.ErrConstraint) {
			return store.Tag{}, err
		}

		if attempt >= MaxAttempts {
			dup := &DuplicateTagError{Name: name, Attempts: attempt, Err: err}
			r.logger.ErrorContext(ctx, "tag create kept conflicting",
				"name", name, "attempts", attempt, "error", err)
			return store.Tag{}, dup
		}

		r.onRetry(name, attempt)
		if err := ctx.Err(); err != nil {
			return store.Tag{}, err
		}
		if err := r.refresh(ctx, batch, known); err != nil {
			return store.Tag{}, err
		}
	}
}

// refresh reads every existing tag matching names into known.
func (r *Resolver) refresh(ctx context.Context, names []string, known map[string]store.Tag) error {
	existing, err := r.store.FindAnyExact(ctx, names)
	if err != nil {
		return fmt.Errorf("fetch existing tags: %w", err)
	}
	pol := r.store.Policy()
	for _, t := range existing {
		known[pol.Key(t.Name)] = t
	}
	return nil
}

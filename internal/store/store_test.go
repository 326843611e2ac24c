package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/validate"
)

// setupStore creates a temporary case-insensitive SQLite store for testing.
func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return setupStoreWith(t, policy.Folded())
}

func setupStoreWith(t *testing.T, pol policy.Policy) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), pol)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Init(context.Background()))
	return s
}

// create inserts a tag and fails the test on error.
func create(t *testing.T, s *store.SQLiteStore, name string, opts store.CreateOptions) *store.Tag {
	t.Helper()
	tag, err := s.Create(context.Background(), name, opts)
	require.NoError(t, err)
	return tag
}

// setUsage writes usage_count directly; taggings are covered separately.
func setUsage(t *testing.T, s *store.SQLiteStore, id, n int64) {
	t.Helper()
	_, err := s.DB().Exec(`UPDATE tags SET usage_count = ? WHERE id = ?`, n, id)
	require.NoError(t, err)
}

func names(tags []store.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

// --- Create / FindExact ---

func TestStore_CreateAndFindExact(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created := create(t, s, "ruby", store.CreateOptions{Category: "lang"})
	assert.NotZero(t, created.ID)
	assert.NotEmpty(t, created.ExternalID)
	assert.True(t, created.Enabled)

	found, err := s.FindExact(ctx, "ruby")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "ruby", found.Name)
	assert.Equal(t, "lang", found.Category)
	assert.Equal(t, created.ExternalID, found.ExternalID)
	assert.Equal(t, int64(0), found.UsageCount)
}

func TestStore_FindExact_NotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.FindExact(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_FindExact_Folded(t *testing.T) {
	s := setupStore(t)
	created := create(t, s, "Ruby", store.CreateOptions{})

	found, err := s.FindExact(context.Background(), "RUBY")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Ruby", found.Name, "display name is kept as written")
}

func TestStore_FindExact_Strict(t *testing.T) {
	s := setupStoreWith(t, policy.Strict())
	create(t, s, "Ruby", store.CreateOptions{})

	_, err := s.FindExact(context.Background(), "ruby")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Create_Duplicate(t *testing.T) {
	s := setupStore(t)
	create(t, s, "go", store.CreateOptions{})

	_, err := s.Create(context.Background(), "GO", store.CreateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConstraint)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed insert must leave no row")
}

func TestStore_Create_StrictAllowsCaseVariants(t *testing.T) {
	s := setupStoreWith(t, policy.Strict())
	a := create(t, s, "Go", store.CreateOptions{})
	b := create(t, s, "go", store.CreateOptions{})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_Create_InvalidName(t *testing.T) {
	s := setupStore(t)

	_, err := s.Create(context.Background(), "", store.CreateOptions{})
	assert.ErrorIs(t, err, validate.ErrInvalidTag)

	_, err = s.Create(context.Background(), strings.Repeat("x", 256), store.CreateOptions{})
	assert.ErrorIs(t, err, validate.ErrTagTooLong)
}

func TestStore_Create_KeepsExternalID(t *testing.T) {
	s := setupStore(t)
	tag := create(t, s, "go", store.CreateOptions{ExternalID: "fixed-id"})
	assert.Equal(t, "fixed-id", tag.ExternalID)
}

func TestStore_FindAnyExact(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	create(t, s, "ruby", store.CreateOptions{})
	create(t, s, "go", store.CreateOptions{})
	create(t, s, "rust", store.CreateOptions{})

	got, err := s.FindAnyExact(ctx, []string{"GO", "Ruby", "missing", "go"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ruby", "go"}, names(got))

	got, err = s.FindAnyExact(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Patterns ---

func TestStore_FindByPattern(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	create(t, s, "Ruby", store.CreateOptions{})
	create(t, s, "ruby-on-rails", store.CreateOptions{})
	create(t, s, "python", store.CreateOptions{})

	got, err := s.FindByPattern(ctx, "RUBY")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ruby", "ruby-on-rails"}, names(got), "ordered by id")
}

func TestStore_FindByPattern_EscapesWildcards(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	create(t, s, "100%", store.CreateOptions{})
	create(t, s, "1000", store.CreateOptions{})
	create(t, s, "snake_case", store.CreateOptions{})
	create(t, s, "snakeXcase", store.CreateOptions{})
	create(t, s, "wow!", store.CreateOptions{})

	got, err := s.FindByPattern(ctx, "0%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100%"}, names(got))

	got, err = s.FindByPattern(ctx, "_")
	require.NoError(t, err)
	assert.Equal(t, []string{"snake_case"}, names(got))

	got, err = s.FindByPattern(ctx, "!")
	require.NoError(t, err)
	assert.Equal(t, []string{"wow!"}, names(got))
}

func TestStore_FindByPattern_NonASCII(t *testing.T) {
	for _, pol := range []policy.Policy{policy.Folded(), policy.Strict()} {
		t.Run(pol.Mode(), func(t *testing.T) {
			s := setupStoreWith(t, pol)
			ctx := context.Background()
			create(t, s, "École", store.CreateOptions{})
			create(t, s, "Äpfel", store.CreateOptions{})

			got, err := s.FindByPattern(ctx, "ÉCO")
			require.NoError(t, err)
			assert.Equal(t, []string{"École"}, names(got))

			for _, pattern := range []string{"äpf", "äPF", "ÄPFEL"} {
				got, err = s.FindByPattern(ctx, pattern)
				require.NoError(t, err)
				assert.Equal(t, []string{"Äpfel"}, names(got), pattern)
			}

			got, err = s.FindAnyByPattern(ctx, []string{"école", "ÄP"})
			require.NoError(t, err)
			assert.Equal(t, []string{"École", "Äpfel"}, names(got))
		})
	}
}

func TestStore_FindByPattern_StrictStillLiteral(t *testing.T) {
	s := setupStoreWith(t, policy.Strict())
	create(t, s, "100%", store.CreateOptions{})
	create(t, s, "1000", store.CreateOptions{})

	got, err := s.FindByPattern(context.Background(), "0%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100%"}, names(got))
}

func TestStore_FindAnyByPattern(t *testing.T) {
	s := setupStore(t)
	create(t, s, "golang", store.CreateOptions{})
	create(t, s, "rustlang", store.CreateOptions{})
	create(t, s, "python", store.CreateOptions{})

	got, err := s.FindAnyByPattern(context.Background(), []string{"go", "RUST"})
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rustlang"}, names(got))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "a!%b!_c!!", store.EscapeLike("a%b_c!"))
	assert.Equal(t, "plain", store.EscapeLike("plain"))
}

// --- Usage ordering ---

func TestStore_MostAndLeastUsed(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i, n := range []int64{5, 3, 9, 1} {
		tag := create(t, s, string(rune('a'+i)), store.CreateOptions{})
		setUsage(t, s, tag.ID, n)
	}

	most, err := s.MostUsed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, most, 2)
	assert.Equal(t, int64(9), most[0].UsageCount)
	assert.Equal(t, int64(5), most[1].UsageCount)

	least, err := s.LeastUsed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, least, 2)
	assert.Equal(t, int64(1), least[0].UsageCount)
	assert.Equal(t, int64(3), least[1].UsageCount)
}

func TestStore_MostUsed_DefaultLimit(t *testing.T) {
	s := setupStore(t)
	for i := 0; i < store.DefaultLimit+5; i++ {
		create(t, s, "tag"+strings.Repeat("x", i), store.CreateOptions{})
	}

	got, err := s.MostUsed(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, store.DefaultLimit)
}

// --- Categories / enabled ---

func TestStore_WithCategories(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	red := create(t, s, "red", store.CreateOptions{Category: "color"})
	create(t, s, "blue", store.CreateOptions{Category: "color"})
	create(t, s, "small", store.CreateOptions{Category: "size"})
	create(t, s, "loose", store.CreateOptions{})

	updated, err := s.SetEnabled(ctx, red.ID, false)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := s.WithCategories(ctx, []string{"color"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue"}, names(got))

	got, err = s.WithCategories(ctx, []string{"color"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, names(got))

	got, err = s.WithCategories(ctx, []string{"color", "size"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue", "small"}, names(got))

	got, err = s.WithCategories(ctx, nil, true)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SetEnabled_Idempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	tag := create(t, s, "go", store.CreateOptions{})

	for range 2 {
		updated, err := s.SetEnabled(ctx, tag.ID, false)
		require.NoError(t, err)
		assert.True(t, updated)
	}

	got, err := s.ByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestStore_SetEnabled_UnknownID(t *testing.T) {
	s := setupStore(t)

	updated, err := s.SetEnabled(context.Background(), 999, true)
	require.NoError(t, err)
	assert.False(t, updated)
}

// --- Rename ---

func TestStore_Rename(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	tag := create(t, s, "golang", store.CreateOptions{})

	updated, err := s.Rename(ctx, tag.ID, "Go")
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := s.FindExact(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, found.ID)
	assert.Equal(t, "Go", found.Name)

	_, err = s.FindExact(ctx, "golang")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Rename_UnknownID(t *testing.T) {
	s := setupStore(t)

	updated, err := s.Rename(context.Background(), 42, "anything")
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestStore_Rename_Collision(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	create(t, s, "go", store.CreateOptions{})
	other := create(t, s, "rust", store.CreateOptions{})

	_, err := s.Rename(ctx, other.ID, "GO")
	assert.ErrorIs(t, err, store.ErrConstraint)

	got, err := s.ByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "rust", got.Name)
}

// --- Taggings ---

func TestStore_AttachDetach(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	tag := create(t, s, "go", store.CreateOptions{})
	tg := store.Tagging{TaggableType: "User", TaggableID: "1", Context: "skills"}

	added, err := s.Attach(ctx, tag.ID, tg)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Attach(ctx, tag.ID, tg)
	require.NoError(t, err)
	assert.False(t, added, "second attach is a no-op")

	got, err := s.ByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)

	attached, err := s.TagsFor(ctx, "User", "1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, names(attached))

	removed, err := s.Detach(ctx, tag.ID, tg)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Detach(ctx, tag.ID, tg)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err = s.ByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UsageCount)
}

func TestStore_Attach_Invalid(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	tag := create(t, s, "go", store.CreateOptions{})

	_, err := s.Attach(ctx, tag.ID, store.Tagging{TaggableType: "User", TaggableID: " ", Context: "skills"})
	assert.ErrorIs(t, err, validate.ErrInvalidTagging)

	_, err = s.Attach(ctx, 999, store.Tagging{TaggableType: "User", TaggableID: "1", Context: "skills"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_FindByContext(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	goTag := create(t, s, "go", store.CreateOptions{})
	red := create(t, s, "red", store.CreateOptions{})
	create(t, s, "unused", store.CreateOptions{})

	for _, id := range []string{"1", "2"} {
		_, err := s.Attach(ctx, goTag.ID, store.Tagging{TaggableType: "User", TaggableID: id, Context: "skills"})
		require.NoError(t, err)
	}
	_, err := s.Attach(ctx, red.ID, store.Tagging{TaggableType: "User", TaggableID: "1", Context: "colors"})
	require.NoError(t, err)

	got, err := s.FindByContext(ctx, "skills")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, names(got), "distinct tags only")

	got, err = s.FindByContext(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Delete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	tag := create(t, s, "go", store.CreateOptions{})
	_, err := s.Attach(ctx, tag.ID, store.Tagging{TaggableType: "User", TaggableID: "1", Context: "skills"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, tag.ID))

	_, err = s.ByID(ctx, tag.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var n int
	require.NoError(t, s.DB().Get(&n, `SELECT COUNT(*) FROM taggings`))
	assert.Zero(t, n, "taggings removed with the tag")

	assert.ErrorIs(t, s.Delete(ctx, tag.ID), store.ErrNotFound)
}

// --- External ids ---

func TestStore_MissingExternalIDs(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	var ids []int64
	for _, n := range []string{"a", "b", "c"} {
		ids = append(ids, create(t, s, n, store.CreateOptions{}).ID)
	}
	_, err := s.DB().Exec(`UPDATE tags SET external_id = NULL WHERE id IN (?, ?)`, ids[0], ids[2])
	require.NoError(t, err)

	n, err := s.CountMissingExternalIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := s.MissingExternalIDs(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Empty(t, page[0].ExternalID)

	page, err = s.MissingExternalIDs(ctx, ids[0], 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)

	ok, err := s.SetExternalID(ctx, ids[0], "new-id")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetExternalID(ctx, ids[0], "other-id")
	require.NoError(t, err)
	assert.False(t, ok, "existing external id is immutable")

	got, err := s.ByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "new-id", got.ExternalID)
}

// --- Policy ---

func TestStore_PolicyMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "policy.db")

	s, err := store.Open(path, policy.Strict())
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Close())

	pol, ok, err := store.PeekPolicy(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, pol.IsStrict())

	s, err = store.Open(path, policy.Folded())
	require.NoError(t, err)
	defer s.Close()
	err = s.Init(ctx)
	assert.True(t, errors.Is(err, store.ErrPolicyMismatch))
}

func TestStore_PeekPolicy_Uninitialised(t *testing.T) {
	_, ok, err := store.PeekPolicy(context.Background(), filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Stats(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	a := create(t, s, "a", store.CreateOptions{})
	create(t, s, "b", store.CreateOptions{})
	_, err := s.SetEnabled(ctx, a.ID, false)
	require.NoError(t, err)
	_, err = s.Attach(ctx, a.ID, store.Tagging{TaggableType: "User", TaggableID: "1", Context: "skills"})
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Tags)
	assert.Equal(t, int64(1), st.Enabled)
	assert.Equal(t, int64(1), st.Disabled)
	assert.Equal(t, int64(1), st.Taggings)
	assert.Equal(t, int64(1), st.Contexts)
	assert.Equal(t, policy.ModeFolded, st.Policy)
}

func TestStore_Memory(t *testing.T) {
	s, err := store.Open(store.MemoryPath, policy.Folded())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Init(context.Background()))

	create(t, s, "go", store.CreateOptions{})
	_, err = s.FindExact(context.Background(), "GO")
	require.NoError(t, err)
}

// --- Tag helpers ---

func TestTag_Equal(t *testing.T) {
	assert.True(t, store.Tag{ID: 1, Name: "a"}.Equal(store.Tag{ID: 1, Name: "b"}))
	assert.True(t, store.Tag{Name: "go"}.Equal(store.Tag{Name: "go"}))
	assert.False(t, store.Tag{ID: 1, Name: "go"}.Equal(store.Tag{ID: 2, Name: "rust"}))
	assert.Equal(t, "go", store.Tag{Name: "go"}.String())
}

package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/resolve"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/store/pgstore"
)

// setupStore connects to the database named by TAGD_TEST_POSTGRES_DSN and
// starts from empty tables. Skips when the variable is unset.
func setupStore(t *testing.T, pol policy.Policy) *pgstore.Store {
	t.Helper()

	dsn := os.Getenv("TAGD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TAGD_TEST_POSTGRES_DSN not set")
	}

	s, err := pgstore.Open(dsn, pol)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.DB().Migrator().DropTable("taggings", "tags", "settings"))
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestPG_CreateAndFind(t *testing.T) {
	s := setupStore(t, policy.Folded())
	ctx := context.Background()

	created, err := s.Create(ctx, "École", store.CreateOptions{Category: "fr"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ExternalID)

	found, err := s.FindExact(ctx, "ÉCOLE")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.Create(ctx, "école", store.CreateOptions{})
	assert.ErrorIs(t, err, store.ErrConstraint)

	like, err := s.FindByPattern(ctx, "COL")
	require.NoError(t, err)
	require.Len(t, like, 1)
	assert.Equal(t, created.ID, like[0].ID)
}

func TestPG_RenameAndEnable(t *testing.T) {
	s := setupStore(t, policy.Folded())
	ctx := context.Background()

	a, err := s.Create(ctx, "a", store.CreateOptions{Category: "c"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "b", store.CreateOptions{})
	require.NoError(t, err)

	_, err = s.Rename(ctx, a.ID, "B")
	assert.ErrorIs(t, err, store.ErrConstraint)

	ok, err := s.Rename(ctx, 9999, "z")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.SetEnabled(ctx, a.ID, false)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.WithCategories(ctx, []string{"c"}, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestPG_AttachAndUsage(t *testing.T) {
	s := setupStore(t, policy.Folded())
	ctx := context.Background()

	tag, err := s.Create(ctx, "go", store.CreateOptions{})
	require.NoError(t, err)
	tg := store.Tagging{TaggableType: "User", TaggableID: "1", Context: "skills"}

	added, err := s.Attach(ctx, tag.ID, tg)
	require.NoError(t, err)
	assert.True(t, added)

	most, err := s.MostUsed(ctx, 1)
	require.NoError(t, err)
	require.Len(t, most, 1)
	assert.Equal(t, int64(1), most[0].UsageCount)

	byCtx, err := s.FindByContext(ctx, "skills")
	require.NoError(t, err)
	assert.Len(t, byCtx, 1)

	require.NoError(t, s.Delete(ctx, tag.ID))
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Taggings)
}

func TestPG_Resolver(t *testing.T) {
	s := setupStore(t, policy.Folded())

	got, err := resolve.New(s).ResolveOrCreate(context.Background(), []string{"Go", "go", "rust"}, resolve.Options{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, got[0].ID, got[1].ID)
}

func TestPG_PolicyMismatch(t *testing.T) {
	setupStore(t, policy.Folded())

	strict, err := pgstore.Open(os.Getenv("TAGD_TEST_POSTGRES_DSN"), policy.Strict())
	require.NoError(t, err)
	defer strict.Close()

	assert.ErrorIs(t, strict.Init(context.Background()), store.ErrPolicyMismatch)
}

func TestPG_PeekPolicy(t *testing.T) {
	s := setupStore(t, policy.Strict())
	ctx := context.Background()

	pol, ok, err := s.PeekPolicy(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, pol.IsStrict())

	folded := s.WithPolicy(policy.Folded())
	assert.ErrorIs(t, folded.Init(ctx), store.ErrPolicyMismatch)

	require.NoError(t, s.DB().Migrator().DropTable("taggings", "tags", "settings"))
	_, ok, err = s.PeekPolicy(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no settings table means nothing recorded")
}

func TestPG_FindByPattern_StrictNonASCII(t *testing.T) {
	s := setupStore(t, policy.Strict())
	ctx := context.Background()

	_, err := s.Create(ctx, "Äpfel", store.CreateOptions{})
	require.NoError(t, err)

	for _, pattern := range []string{"äpf", "äPF"} {
		got, err := s.FindByPattern(ctx, pattern)
		require.NoError(t, err)
		assert.Len(t, got, 1, pattern)
	}
}

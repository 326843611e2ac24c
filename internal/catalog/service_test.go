package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/tagd/internal/backfill"
	"github.com/jpl-au/tagd/internal/catalog"
	"github.com/jpl-au/tagd/internal/config"
	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/repo"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/store/pgstore"
	"github.com/jpl-au/tagd/internal/validate"
)

// setupService initialises a store in an empty working directory with an
// empty home and opens it.
func setupService(t *testing.T, strict *bool) *catalog.Service {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	ctx := context.Background()

	_, _, err := catalog.Init(ctx, false, "", "", strict)
	require.NoError(t, err, "init store")

	svc, err := catalog.New(ctx, catalog.Options{})
	require.NoError(t, err, "open service")
	t.Cleanup(func() { svc.Close() })
	return svc
}

func boolPtr(b bool) *bool { return &b }

func TestNew_NotInitialised(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, err := catalog.New(context.Background(), catalog.Options{})
	assert.ErrorIs(t, err, repo.ErrNotInitialised)
}

func TestNew_ExplicitDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	ctx := context.Background()
	root := t.TempDir()

	_, err := catalog.New(ctx, catalog.Options{Dir: root})
	assert.ErrorIs(t, err, repo.ErrNotInitialised)

	path, pol, err := catalog.Init(ctx, false, "work", root, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, repo.Dir, "tagd-work.db"), path)
	assert.False(t, pol.IsStrict())

	svc, err := catalog.New(ctx, catalog.Options{Dir: root, DB: "work"})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, path, svc.DBPath())
}

func TestNew_KeepsRecordedPolicy(t *testing.T) {
	svc := setupService(t, boolPtr(true))
	assert.True(t, svc.Policy().IsStrict(), "opened without override, recorded policy wins")
	require.NoError(t, svc.Close())

	ctx := context.Background()
	_, err := catalog.New(ctx, catalog.Options{Strict: boolPtr(false)})
	assert.ErrorIs(t, err, store.ErrPolicyMismatch)

	again, err := catalog.New(ctx, catalog.Options{Strict: boolPtr(true)})
	require.NoError(t, err)
	defer again.Close()
	assert.True(t, again.Policy().IsStrict())
}

func TestNew_ConfigPolicyAndLimit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	ctx := context.Background()

	cfg, err := config.LoadScope(config.ScopeLocal)
	require.NoError(t, err)
	require.NoError(t, cfg.Set("tags.strict_case_match", "true"))
	require.NoError(t, cfg.Set("tags.default_limit", "2"))
	require.NoError(t, cfg.SaveScope(config.ScopeLocal))

	_, _, err = catalog.Init(ctx, false, "", "", nil)
	require.NoError(t, err)

	svc, err := catalog.New(ctx, catalog.Options{})
	require.NoError(t, err)
	defer svc.Close()
	assert.True(t, svc.Policy().IsStrict())
	assert.Equal(t, 2, svc.DefaultLimit())

	_, err = svc.Resolve(ctx, []string{"a", "b", "c"}, "")
	require.NoError(t, err)
	top, err := svc.MostUsed(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, top, 2, "non-positive limit uses the configured default")
	top, err = svc.MostUsed(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, top, 3)
}

func TestResolveAndFind(t *testing.T) {
	svc := setupService(t, nil)
	ctx := context.Background()
	assert.Equal(t, policy.ModeFolded, svc.Policy().Mode())

	tags, err := svc.Resolve(ctx, []string{"Go", "go", "SQL"}, "lang")
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, tags[0].ID, tags[1].ID)
	assert.Equal(t, "lang", tags[2].Category)

	found, err := svc.Find(ctx, []string{"GO", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Go", found[0].Name)

	found, err = svc.Search(ctx, []string{"q"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "SQL", found[0].Name)

	empty, err := svc.Find(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	one, err := svc.ResolveOne(ctx, "s", "")
	require.NoError(t, err)
	assert.Equal(t, "SQL", one.Name, "folded single resolve prefers a containing tag")
}

func TestLookup(t *testing.T) {
	svc := setupService(t, nil)
	ctx := context.Background()

	tags, err := svc.Resolve(ctx, []string{"alpha", "2024"}, "")
	require.NoError(t, err)

	byID, err := svc.Lookup(ctx, strconv.FormatInt(tags[0].ID, 10))
	require.NoError(t, err)
	assert.Equal(t, "alpha", byID.Name)

	byName, err := svc.Lookup(ctx, "ALPHA")
	require.NoError(t, err)
	assert.Equal(t, tags[0].ID, byName.ID)

	numeric, err := svc.Lookup(ctx, "2024")
	require.NoError(t, err)
	assert.Equal(t, tags[1].ID, numeric.ID, "numeric name reachable when no such id")

	_, err = svc.Lookup(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Lookup(ctx, "  ")
	assert.ErrorIs(t, err, validate.ErrInvalidTag)
}

func TestAttachDetach(t *testing.T) {
	svc := setupService(t, nil)
	ctx := context.Background()
	who := store.Tagging{TaggableType: "User", TaggableID: "7", Context: "skills"}

	tags, added, err := svc.Attach(ctx, who, []string{"go", "Go", "sql"})
	require.NoError(t, err)
	assert.Len(t, tags, 3)
	assert.Equal(t, 2, added, "equal names attach once")

	_, added, err = svc.Attach(ctx, who, []string{"go"})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	attached, err := svc.TagsFor(ctx, "User", "7", "")
	require.NoError(t, err)
	assert.Len(t, attached, 2)

	inContext, err := svc.ForContext(ctx, "skills")
	require.NoError(t, err)
	assert.Len(t, inContext, 2)

	top, err := svc.MostUsed(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.EqualValues(t, 1, top[0].UsageCount)

	_, removed, err := svc.Detach(ctx, who, []string{"GO", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	attached, err = svc.TagsFor(ctx, "User", "7", "skills")
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, "sql", attached[0].Name)
}

func TestAttach_InvalidTaggingCreatesNothing(t *testing.T) {
	svc := setupService(t, nil)
	ctx := context.Background()

	_, _, err := svc.Attach(ctx, store.Tagging{TaggableType: "User", TaggableID: "1"}, []string{"fresh"})
	assert.ErrorIs(t, err, validate.ErrInvalidTagging)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRenameEnableDelete(t *testing.T) {
	svc := setupService(t, nil)
	ctx := context.Background()

	tags, err := svc.Resolve(ctx, []string{"old", "taken"}, "c")
	require.NoError(t, err)

	ok, err := svc.Rename(ctx, tags[0].ID, "new")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Rename(ctx, tags[0].ID, "TAKEN")
	assert.ErrorIs(t, err, store.ErrConstraint)

	ok, err = svc.Rename(ctx, 9999, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.SetEnabled(ctx, tags[1].ID, false)
	require.NoError(t, err)
	assert.True(t, ok)

	disabled, err := svc.WithCategories(ctx, []string{"c"}, false)
	require.NoError(t, err)
	require.Len(t, disabled, 1)
	assert.Equal(t, "taken", disabled[0].Name)

	require.NoError(t, svc.Delete(ctx, tags[1].ID))
	assert.ErrorIs(t, svc.Delete(ctx, tags[1].ID), store.ErrNotFound)
}

func TestBackfillAndStats(t *testing.T) {
	svc := setupService(t, nil)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, []string{"a", "b"}, "")
	require.NoError(t, err)

	res, err := svc.Backfill(ctx, func(backfill.Step) {
		t.Fatal("no step expected when every tag has an id")
	})
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Tags)
	assert.EqualValues(t, 0, st.MissingExternalIDs)
	assert.Equal(t, policy.ModeFolded, st.Policy)
}

func TestFromStore(t *testing.T) {
	s, err := store.Open(store.MemoryPath, policy.Strict())
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))

	svc := catalog.FromStore(s, 0)
	defer svc.Close()
	assert.Equal(t, store.DefaultLimit, svc.DefaultLimit())
	assert.True(t, svc.Policy().IsStrict())
	assert.Same(t, s, svc.Store())

	_, err = os.Stat(svc.DBPath())
	assert.Error(t, err, "in-memory service has no file")
}

// usePostgres points the local config at dsn in a fresh working directory.
func usePostgres(t *testing.T, dsn string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := config.LoadScope(config.ScopeLocal)
	require.NoError(t, err)
	require.NoError(t, cfg.Set("store.driver", "postgres"))
	require.NoError(t, cfg.Set("store.dsn", dsn))
	require.NoError(t, cfg.SaveScope(config.ScopeLocal))
}

func TestInit_PostgresRejectsForce(t *testing.T) {
	usePostgres(t, "postgres://unused")

	_, _, err := catalog.Init(context.Background(), true, "", "", nil)
	assert.ErrorIs(t, err, catalog.ErrForceUnsupported)
}

func TestNew_PostgresKeepsRecordedPolicy(t *testing.T) {
	dsn := os.Getenv("TAGD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TAGD_TEST_POSTGRES_DSN not set")
	}
	usePostgres(t, dsn)
	ctx := context.Background()

	pg, err := pgstore.Open(dsn, policy.Folded())
	require.NoError(t, err)
	require.NoError(t, pg.DB().Migrator().DropTable("taggings", "tags", "settings"))
	require.NoError(t, pg.Close())

	_, pol, err := catalog.Init(ctx, false, "", "", boolPtr(true))
	require.NoError(t, err)
	assert.True(t, pol.IsStrict())

	svc, err := catalog.New(ctx, catalog.Options{})
	require.NoError(t, err, "recorded policy applies without config")
	defer svc.Close()
	assert.True(t, svc.Policy().IsStrict())
	assert.Equal(t, config.DriverPostgres, svc.DBPath())

	_, err = catalog.New(ctx, catalog.Options{Strict: boolPtr(false)})
	assert.ErrorIs(t, err, store.ErrPolicyMismatch)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/tagd/internal/config"
)

// isolate runs the test in an empty working directory with an empty home.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.StrictCaseMatch())
	assert.False(t, cfg.IsSet("tags.strict_case_match"))
	assert.Equal(t, config.DefaultLimit, cfg.DefaultLimit())
	assert.Equal(t, config.DriverSQLite, cfg.Driver())
	assert.Equal(t, config.DefaultHTTPAddr, cfg.HTTPAddr())
}

func TestSetGet(t *testing.T) {
	var cfg config.Config

	require.NoError(t, cfg.Set("tags.strict_case_match", "TRUE"))
	v, err := cfg.Get("tags.strict_case_match")
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	assert.True(t, cfg.IsSet("tags.strict_case_match"))

	require.NoError(t, cfg.Set("tags.default_limit", "50"))
	assert.Equal(t, 50, cfg.DefaultLimit())

	require.NoError(t, cfg.Set("store.driver", "postgres"))
	assert.Equal(t, config.DriverPostgres, cfg.Driver())

	assert.ErrorIs(t, cfg.Set("tags.strict_case_match", "maybe"), config.ErrInvalidValue)
	assert.ErrorIs(t, cfg.Set("tags.default_limit", "0"), config.ErrInvalidValue)
	assert.ErrorIs(t, cfg.Set("store.driver", "mysql"), config.ErrInvalidValue)
	assert.ErrorIs(t, cfg.Set("nope", "x"), config.ErrUnknownKey)

	_, err = cfg.Get("nope")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestAllCoversValidKeys(t *testing.T) {
	var cfg config.Config
	all := cfg.All()
	for _, k := range config.ValidKeys() {
		assert.Contains(t, all, k)
		assert.True(t, config.IsValidKey(k))
	}
}

func TestLocalOverridesGlobal(t *testing.T) {
	isolate(t)

	global := &config.Config{}
	require.NoError(t, global.Set("author.name", "global"))
	require.NoError(t, global.SaveScope(config.ScopeGlobal))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "global", cfg.Author.Name)
	assert.Equal(t, config.ScopeGlobal, cfg.Scope())

	local := &config.Config{}
	require.NoError(t, local.Set("author.name", "local"))
	require.NoError(t, local.SaveScope(config.ScopeLocal))

	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Author.Name)
	assert.Equal(t, config.ScopeLocal, cfg.Scope())
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)

	require.NoError(t, os.MkdirAll(".tagd", 0755))
	require.NoError(t, os.WriteFile(filepath.Join(".tagd", "config.yaml"),
		[]byte("tags:\n  default_limit: 0\n"), 0644))

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrInvalidValue)

	require.NoError(t, os.WriteFile(filepath.Join(".tagd", "config.yaml"), []byte("tags: [\n"), 0644))
	_, err = config.Load()
	assert.Error(t, err)
}

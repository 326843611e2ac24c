// Package config provides reading and writing of tagd configuration.
// Supports both global (~/.tagd/config.yaml) and local (.tagd/config.yaml).
// Reading: uses local if it exists, otherwise global.
// Writing: defaults to global, use --local for local.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.tagd/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is repository-specific config in .tagd/config.yaml
	ScopeLocal
)

// Author represents the author metadata recorded in audit entries.
type Author struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// Tags holds tag comparison and query options.
type Tags struct {
	StrictCaseMatch *bool `yaml:"strict_case_match,omitempty"`
	DefaultLimit    *int  `yaml:"default_limit,omitempty"`
}

// Store selects the storage backend.
type Store struct {
	Driver string `yaml:"driver,omitempty"` // sqlite (default) or postgres
	DSN    string `yaml:"dsn,omitempty"`    // postgres connection string
}

// HTTP holds HTTP API options.
type HTTP struct {
	Addr string `yaml:"addr,omitempty"`
}

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults applied when not configured.
const (
	DefaultLimit    = 20
	DefaultHTTPAddr = "127.0.0.1:7070"
)

// Validation bounds for configuration values.
const (
	MinDefaultLimit = 1
	MaxDefaultLimit = 1000
)

// Config contains configuration for tagd.
type Config struct {
	Author Author `yaml:"author,omitempty"`
	Tags   Tags   `yaml:"tags,omitempty"`
	Store  Store  `yaml:"store,omitempty"`
	HTTP   HTTP   `yaml:"http,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
}

// Validate checks that all configured values are within acceptable bounds.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.Tags.DefaultLimit != nil {
		v := *c.Tags.DefaultLimit
		if v < MinDefaultLimit || v > MaxDefaultLimit {
			return fmt.Errorf("%w: tags.default_limit must be between %d and %d, got %d",
				ErrInvalidValue, MinDefaultLimit, MaxDefaultLimit, v)
		}
	}
	switch c.Store.Driver {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: store.driver must be %s or %s, got %q",
			ErrInvalidValue, DriverSQLite, DriverPostgres, c.Store.Driver)
	}
	return nil
}

// StrictCaseMatch returns whether tag names compare case-sensitively
// (defaults to false).
func (c *Config) StrictCaseMatch() bool {
	if c.Tags.StrictCaseMatch == nil {
		return false
	}
	return *c.Tags.StrictCaseMatch
}

// DefaultLimit returns the result cap for usage queries (defaults to 20).
func (c *Config) DefaultLimit() int {
	if c.Tags.DefaultLimit == nil {
		return DefaultLimit
	}
	return *c.Tags.DefaultLimit
}

// Driver returns the storage driver (defaults to sqlite).
func (c *Config) Driver() string {
	if c.Store.Driver == "" {
		return DriverSQLite
	}
	return c.Store.Driver
}

// HTTPAddr returns the HTTP listen address.
func (c *Config) HTTPAddr() string {
	if c.HTTP.Addr == "" {
		return DefaultHTTPAddr
	}
	return c.HTTP.Addr
}

// LocalPath returns the path to the local (repository) config file.
func LocalPath() string {
	return filepath.Join(".tagd", "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.tagd/config.yaml
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tagd", "config.yaml")
}

// Load reads configuration: uses local if it exists, otherwise global.
func Load() (*Config, error) {
	// Check if local config exists
	if _, err := os.Stat(LocalPath()); err == nil {
		return LoadScope(ScopeLocal)
	}
	// Fall back to global
	return LoadScope(ScopeGlobal)
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	path := pathForScope(scope)
	if path == "" {
		return &Config{scope: scope}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path, scope: scope}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
	}
	cfg.path = path
	cfg.scope = scope

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Save writes the configuration to its original location.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// SaveScope writes the configuration to the specified scope.
func (c *Config) SaveScope(scope Scope) error {
	path := pathForScope(scope)
	if path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(path)
}

// saveToPath writes configuration to a specific filesystem path.
// Creates parent directories as needed with mode 0755.
func (c *Config) saveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// pathForScope returns the filesystem path for a given scope.
func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}

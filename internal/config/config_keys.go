// config_keys.go provides key-value access to configuration settings.
//
// The CLI and MCP tools address settings by dotted keys such as
// "tags.strict_case_match". Optional fields are pointers so "not set" and
// "explicitly false" stay distinguishable, which matters for the case
// policy: an unset value defers to the policy recorded in the store.

package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"author.name", "author.email",
		"tags.strict_case_match", "tags.default_limit",
		"store.driver", "store.dsn",
		"http.addr",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "author.name":
		return c.Author.Name, nil
	case "author.email":
		return c.Author.Email, nil
	case "tags.strict_case_match":
		return strconv.FormatBool(c.StrictCaseMatch()), nil
	case "tags.default_limit":
		return strconv.Itoa(c.DefaultLimit()), nil
	case "store.driver":
		return c.Driver(), nil
	case "store.dsn":
		return c.Store.DSN, nil
	case "http.addr":
		return c.HTTPAddr(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set sets the value of a configuration key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "author.name":
		c.Author.Name = value
	case "author.email":
		c.Author.Email = value
	case "tags.strict_case_match":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Tags.StrictCaseMatch = &b
	case "tags.default_limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < MinDefaultLimit || n > MaxDefaultLimit {
			return fmt.Errorf("%w: tags.default_limit must be between %d and %d",
				ErrInvalidValue, MinDefaultLimit, MaxDefaultLimit)
		}
		c.Tags.DefaultLimit = &n
	case "store.driver":
		v := strings.ToLower(value)
		if v != DriverSQLite && v != DriverPostgres {
			return fmt.Errorf("%w: store.driver must be %s or %s", ErrInvalidValue, DriverSQLite, DriverPostgres)
		}
		c.Store.Driver = v
	case "store.dsn":
		c.Store.DSN = value
	case "http.addr":
		c.HTTP.Addr = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// All returns all configuration values as a map.
func (c *Config) All() map[string]string {
	return map[string]string{
		"author.name":            c.Author.Name,
		"author.email":           c.Author.Email,
		"tags.strict_case_match": strconv.FormatBool(c.StrictCaseMatch()),
		"tags.default_limit":     strconv.Itoa(c.DefaultLimit()),
		"store.driver":           c.Driver(),
		"store.dsn":              c.Store.DSN,
		"http.addr":              c.HTTPAddr(),
	}
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "author.name":
		return c.Author.Name != ""
	case "author.email":
		return c.Author.Email != ""
	case "tags.strict_case_match":
		return c.Tags.StrictCaseMatch != nil
	case "tags.default_limit":
		return c.Tags.DefaultLimit != nil
	case "store.driver":
		return c.Store.Driver != ""
	case "store.dsn":
		return c.Store.DSN != ""
	case "http.addr":
		return c.HTTP.Addr != ""
	default:
		return false
	}
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
}

// Package policy defines how tag names are compared.
//
// A Policy is fixed when the process starts and injected into every
// component that compares names: the store derives the unique name_key
// column from it and the resolver matches lookups with it. Mixing two
// policies against one database would break the uniqueness invariant for
// rows written earlier, so the store records the policy it was initialised
// with and refuses to open under a different one.
package policy

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode names, persisted in the store settings table.
const (
	ModeStrict = "strict"
	ModeFolded = "folded"
)

// Policy is an immutable name comparison policy.
type Policy struct {
	strict bool
}

// New returns the policy for the strict_case_match setting.
func New(strict bool) Policy {
	return Policy{strict: strict}
}

// Strict returns the byte-exact policy.
func Strict() Policy { return Policy{strict: true} }

// Folded returns the default, case-insensitive policy.
func Folded() Policy { return Policy{} }

// FromMode parses a persisted mode name. Unknown modes report false.
func FromMode(mode string) (Policy, bool) {
	switch mode {
	case ModeStrict:
		return Strict(), true
	case ModeFolded:
		return Folded(), true
	}
	return Policy{}, false
}

// IsStrict reports whether names compare byte-for-byte.
func (p Policy) IsStrict() bool { return p.strict }

// Mode returns the persisted name of the policy.
func (p Policy) Mode() string {
	if p.strict {
		return ModeStrict
	}
	return ModeFolded
}

// Key returns the comparable form of name under p.
func (p Policy) Key(name string) string {
	if p.strict {
		return name
	}
	return Fold(name)
}

// Equal reports whether a and b name the same tag under p.
func (p Policy) Equal(a, b string) bool {
	return p.Key(a) == p.Key(b)
}

// Keys returns the distinct keys of names, in first-seen order.
func (p Policy) Keys(names []string) []string {
	seen := make(map[string]bool, len(names))
	keys := make([]string, 0, len(names))
	for _, n := range names {
		k := p.Key(n)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// Fold lowercases s using Unicode case mapping rules.
// A Caser carries state, so one is built per call rather than shared.
func Fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Package store defines tag persistence types and the Store interface.
// Implementations handle the actual database operations while consumers
// depend only on this interface, enabling testing and alternative backends.
package store

import (
	"encoding/json"
	"time"
)

// Tag is a uniquely named label. The unique key is NameKey, the comparable
// form of Name under the policy the store was opened with.
type Tag struct {
	ID         int64  `db:"id"`          // Store-assigned, never reused
	Name       string `db:"name"`        // Display name, as first written or last renamed
	NameKey    string `db:"name_key"`    // Normalised name carrying the unique index
	ExternalID string `db:"external_id"` // Stable UUID for cross-system references; empty until backfilled
	Category   string `db:"category"`    // Optional classification
	Enabled    bool   `db:"enabled"`     // Disabled tags are hidden from enabled-scoped queries
	UsageCount int64  `db:"usage_count"` // Active associations, maintained by Attach/Detach
	CreatedAt  int64  `db:"created_at"`  // Unix timestamp of creation
}

// String returns the tag name.
func (t Tag) String() string {
	return t.Name
}

// Equal reports whether t and o are the same tag: same id, or same name.
// Two unsaved tags with equal names are considered equal.
func (t Tag) Equal(o Tag) bool {
	if t.ID != 0 && t.ID == o.ID {
		return true
	}
	return t.Name == o.Name
}

// Tagging associates a tag with an entity owned by the host application,
// under a named context such as "skills" or "colors".
type Tagging struct {
	ID           int64  `db:"id"`
	TagID        int64  `db:"tag_id"`
	TaggableType string `db:"taggable_type"` // Entity kind, e.g. "User"
	TaggableID   string `db:"taggable_id"`   // Entity identifier within its kind
	Context      string `db:"context"`       // Grouping key, e.g. "skills"
	CreatedAt    int64  `db:"created_at"`
}

// TagJSON is the API-friendly representation of a Tag.
type TagJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Enabled    bool   `json:"enabled"`
	UsageCount int64  `json:"usage_count"`
	CreatedAt  string `json:"created_at"`
}

// ToJSON converts a Tag to its API representation with an RFC3339 timestamp.
func (t *Tag) ToJSON() TagJSON {
	return TagJSON{
		ID:         t.ID,
		Name:       t.Name,
		ExternalID: t.ExternalID,
		Category:   t.Category,
		Enabled:    t.Enabled,
		UsageCount: t.UsageCount,
		CreatedAt:  time.Unix(t.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}

// TagsJSON converts a slice of tags for API output. Never returns nil so
// empty results encode as [] rather than null.
func TagsJSON(tags []Tag) []TagJSON {
	out := make([]TagJSON, 0, len(tags))
	for i := range tags {
		out = append(out, tags[i].ToJSON())
	}
	return out
}

// MarshalJSON encodes a value with indentation for human-readable output.
func MarshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// CreateOptions configures a create operation.
type CreateOptions struct {
	Category   string // Applied to the new row only; not part of the unique key
	ExternalID string // Generated when empty
}

// DefaultLimit bounds MostUsed and LeastUsed when the caller passes a
// non-positive limit.
const DefaultLimit = 20

// Stats provides aggregate counts for operational visibility.
type Stats struct {
	Tags               int64  `json:"tags"`
	Enabled            int64  `json:"enabled"`
	Disabled           int64  `json:"disabled"`
	MissingExternalIDs int64  `json:"missing_external_ids"`
	Taggings           int64  `json:"taggings"`
	Contexts           int64  `json:"contexts"`
	Policy             string `json:"policy"`
}

package pgstore

import "github.com/jpl-au/tagd/internal/store"

// tagRow maps the tags table. Optional columns are pointers so they can be
// NULL, matching the SQLite schema.
type tagRow struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	Name       string  `gorm:"not null;size:255"`
	NameKey    string  `gorm:"not null;uniqueIndex:idx_tags_name_key"`
	ExternalID *string `gorm:"uniqueIndex:idx_tags_external_id"`
	Category   *string `gorm:"index:idx_tags_category_enabled,priority:1"`
	Enabled    bool    `gorm:"not null;default:true;index:idx_tags_category_enabled,priority:2"`
	UsageCount int64   `gorm:"not null;default:0;index:idx_tags_usage_count"`
	CreatedAt  int64   `gorm:"not null;autoCreateTime"`
}

func (tagRow) TableName() string { return "tags" }

type taggingRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	TagID        int64  `gorm:"not null;uniqueIndex:idx_taggings_unique,priority:1"`
	TaggableType string `gorm:"not null;uniqueIndex:idx_taggings_unique,priority:2;index:idx_taggings_taggable,priority:1"`
	TaggableID   string `gorm:"not null;uniqueIndex:idx_taggings_unique,priority:3;index:idx_taggings_taggable,priority:2"`
	Context      string `gorm:"not null;uniqueIndex:idx_taggings_unique,priority:4;index:idx_taggings_context"`
	CreatedAt    int64  `gorm:"not null;autoCreateTime"`
}

func (taggingRow) TableName() string { return "taggings" }

type settingRow struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (settingRow) TableName() string { return "settings" }

func (r tagRow) toTag() store.Tag {
	t := store.Tag{
		ID:         r.ID,
		Name:       r.Name,
		NameKey:    r.NameKey,
		Enabled:    r.Enabled,
		UsageCount: r.UsageCount,
		CreatedAt:  r.CreatedAt,
	}
	if r.ExternalID != nil {
		t.ExternalID = *r.ExternalID
	}
	if r.Category != nil {
		t.Category = *r.Category
	}
	return t
}

func toTags(rows []tagRow) []store.Tag {
	out := make([]store.Tag, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toTag())
	}
	return out
}

// optional maps empty strings to NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

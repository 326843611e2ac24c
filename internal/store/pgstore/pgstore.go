// Package pgstore implements store.Store on PostgreSQL through GORM.
//
// The schema mirrors the SQLite one: a unique index on name_key carries the
// uniqueness guarantee, and GORM's error translation turns unique violations
// into gorm.ErrDuplicatedKey, which this package reports as
// store.ErrConstraint.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/validate"
)

const settingPolicy = "case_policy"

// Store implements store.Store on PostgreSQL.
type Store struct {
	db     *gorm.DB
	policy policy.Policy
}

var _ store.Store = (*Store)(nil)

// Open connects to the database at dsn. Call Init before use.
func Open(dsn string, pol policy.Policy) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Store{db: db, policy: pol}, nil
}

// Init migrates the schema and records the case policy on first use.
// Returns store.ErrPolicyMismatch if a different policy was recorded.
func (s *Store) Init(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&tagRow{}, &taggingRow{}, &settingRow{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	row := settingRow{Key: settingPolicy}
	if err := db.Where(settingRow{Key: settingPolicy}).
		Attrs(settingRow{Value: s.policy.Mode()}).
		FirstOrCreate(&row).Error; err != nil {
		return fmt.Errorf("record case policy: %w", err)
	}
	if row.Value != s.policy.Mode() {
		return fmt.Errorf("%w: store is %s, opened as %s", store.ErrPolicyMismatch, row.Value, s.policy.Mode())
	}
	return nil
}

// PeekPolicy reads the case policy recorded in the database without
// migrating it. Reports false when the settings table or the policy row
// does not exist yet.
func (s *Store) PeekPolicy(ctx context.Context) (policy.Policy, bool, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(&settingRow{}) {
		return policy.Policy{}, false, nil
	}

	var row settingRow
	err := db.Where("key = ?", settingPolicy).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return policy.Policy{}, false, nil
	}
	if err != nil {
		return policy.Policy{}, false, fmt.Errorf("read case policy: %w", err)
	}
	p, ok := policy.FromMode(row.Value)
	if !ok {
		return policy.Policy{}, false, fmt.Errorf("unknown case policy %q", row.Value)
	}
	return p, true, nil
}

// WithPolicy returns a Store sharing s's connection pool that compares
// names under pol. Call Init on the result before use.
func (s *Store) WithPolicy(pol policy.Policy) *Store {
	return &Store{db: s.db, policy: pol}
}

// DB exposes the GORM handle for maintenance and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Policy returns the comparison policy the store was opened with.
func (s *Store) Policy() policy.Policy {
	return s.policy
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindExact returns the tag whose key equals the key of name.
func (s *Store) FindExact(ctx context.Context, name string) (*store.Tag, error) {
	var row tagRow
	err := s.db.WithContext(ctx).Where("name_key = ?", s.policy.Key(name)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find tag %q: %w", name, err)
	}
	t := row.toTag()
	return &t, nil
}

// FindAnyExact returns every tag matching any of names in one query.
func (s *Store) FindAnyExact(ctx context.Context, names []string) ([]store.Tag, error) {
	keys := s.policy.Keys(names)
	if len(keys) == 0 {
		return []store.Tag{}, nil
	}

	conds := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		conds[i] = "name_key = ?"
		args[i] = k
	}
	return s.find(ctx, "find tags", s.db.Where(strings.Join(conds, " OR "), args...).Order("id"))
}

// FindByPattern returns tags whose name contains name, ordered by id.
func (s *Store) FindByPattern(ctx context.Context, name string) ([]store.Tag, error) {
	return s.FindAnyByPattern(ctx, []string{name})
}

// FindAnyByPattern returns tags whose name contains any of names.
// ILIKE folds case for every script, so name alone is enough here.
func (s *Store) FindAnyByPattern(ctx context.Context, names []string) ([]store.Tag, error) {
	if len(names) == 0 {
		return []store.Tag{}, nil
	}

	conds := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		conds[i] = "name ILIKE ? ESCAPE '!'"
		args[i] = "%" + store.EscapeLike(n) + "%"
	}
	return s.find(ctx, "find tags by pattern", s.db.Where(strings.Join(conds, " OR "), args...).Order("id"))
}

// ByID returns a tag by id.
func (s *Store) ByID(ctx context.Context, id int64) (*store.Tag, error) {
	var row tagRow
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %d: %w", id, err)
	}
	t := row.toTag()
	return &t, nil
}

// FindByContext returns distinct tags used in the named context.
func (s *Store) FindByContext(ctx context.Context, name string) ([]store.Tag, error) {
	sub := s.db.Model(&taggingRow{}).Select("tag_id").Where("context = ?", name)
	return s.find(ctx, "find tags by context", s.db.Where("id IN (?)", sub).Order("id"))
}

// MostUsed returns up to limit tags by usage_count descending.
func (s *Store) MostUsed(ctx context.Context, limit int) ([]store.Tag, error) {
	return s.find(ctx, "most used tags", s.db.Order("usage_count DESC, id").Limit(normLimit(limit)))
}

// LeastUsed returns up to limit tags by usage_count ascending.
func (s *Store) LeastUsed(ctx context.Context, limit int) ([]store.Tag, error) {
	return s.find(ctx, "least used tags", s.db.Order("usage_count ASC, id").Limit(normLimit(limit)))
}

// WithCategories returns tags in any of categories with the given enabled
// state.
func (s *Store) WithCategories(ctx context.Context, categories []string, enabled bool) ([]store.Tag, error) {
	if len(categories) == 0 {
		return []store.Tag{}, nil
	}
	return s.find(ctx, "tags by category",
		s.db.Where("category IN ? AND enabled = ?", categories, enabled).Order("id"))
}

// List returns all tags ordered by name key.
func (s *Store) List(ctx context.Context) ([]store.Tag, error) {
	return s.find(ctx, "list tags", s.db.Order("name_key, id"))
}

// TagsFor returns the tags attached to an entity.
func (s *Store) TagsFor(ctx context.Context, taggableType, taggableID, tagContext string) ([]store.Tag, error) {
	sub := s.db.Model(&taggingRow{}).Select("tag_id").
		Where("taggable_type = ? AND taggable_id = ?", taggableType, taggableID)
	if tagContext != "" {
		sub = sub.Where("context = ?", tagContext)
	}
	return s.find(ctx, "tags for entity", s.db.Where("id IN (?)", sub).Order("id"))
}

// Stats returns aggregate counts.
func (s *Store) Stats(ctx context.Context) (*store.Stats, error) {
	db := s.db.WithContext(ctx)
	st := store.Stats{Policy: s.policy.Mode()}

	if err := db.Model(&tagRow{}).Count(&st.Tags).Error; err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}
	if err := db.Model(&tagRow{}).Where("enabled = ?", true).Count(&st.Enabled).Error; err != nil {
		return nil, fmt.Errorf("count enabled: %w", err)
	}
	st.Disabled = st.Tags - st.Enabled
	if err := db.Model(&tagRow{}).Where("external_id IS NULL").Count(&st.MissingExternalIDs).Error; err != nil {
		return nil, fmt.Errorf("count missing external ids: %w", err)
	}
	if err := db.Model(&taggingRow{}).Count(&st.Taggings).Error; err != nil {
		return nil, fmt.Errorf("count taggings: %w", err)
	}
	if err := db.Model(&taggingRow{}).Distinct("context").Count(&st.Contexts).Error; err != nil {
		return nil, fmt.Errorf("count contexts: %w", err)
	}
	return &st, nil
}

// Create inserts a new tag. A unique violation returns store.ErrConstraint;
// the single-statement insert leaves nothing behind.
func (s *Store) Create(ctx context.Context, name string, opts store.CreateOptions) (*store.Tag, error) {
	if err := validate.Name(name); err != nil {
		return nil, err
	}

	ext := opts.ExternalID
	if ext == "" {
		ext = uuid.NewString()
	}
	row := tagRow{
		Name:       name,
		NameKey:    s.policy.Key(name),
		ExternalID: &ext,
		Category:   optional(opts.Category),
		Enabled:    true,
		CreatedAt:  time.Now().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert tag %q: %w", name, translate(err))
	}
	t := row.toTag()
	return &t, nil
}

// Rename overwrites a tag's name. Reports false when id does not exist.
func (s *Store) Rename(ctx context.Context, id int64, name string) (bool, error) {
	if err := validate.Name(name); err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Model(&tagRow{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "name_key": s.policy.Key(name)})
	if res.Error != nil {
		return false, fmt.Errorf("rename tag %d: %w", id, translate(res.Error))
	}
	return res.RowsAffected > 0, nil
}

// SetEnabled sets the enabled flag. Reports false when id does not exist.
func (s *Store) SetEnabled(ctx context.Context, id int64, enabled bool) (bool, error) {
	res := s.db.WithContext(ctx).Model(&tagRow{}).Where("id = ?", id).Update("enabled", enabled)
	if res.Error != nil {
		return false, fmt.Errorf("set enabled on tag %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Delete removes a tag and its taggings.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&taggingRow{}).Error; err != nil {
			return fmt.Errorf("delete taggings: %w", err)
		}
		res := tx.Delete(&tagRow{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete tag %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// CountMissingExternalIDs returns how many tags lack an external id.
func (s *Store) CountMissingExternalIDs(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&tagRow{}).Where("external_id IS NULL").Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count missing external ids: %w", err)
	}
	return n, nil
}

// MissingExternalIDs returns the next page of tags lacking an external id.
func (s *Store) MissingExternalIDs(ctx context.Context, afterID int64, limit int) ([]store.Tag, error) {
	return s.find(ctx, "tags missing external id",
		s.db.Where("external_id IS NULL AND id > ?", afterID).Order("id").Limit(limit))
}

// SetExternalID assigns externalID to a tag that has none.
func (s *Store) SetExternalID(ctx context.Context, id int64, externalID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&tagRow{}).
		Where("id = ? AND external_id IS NULL", id).
		Update("external_id", externalID)
	if res.Error != nil {
		return false, fmt.Errorf("set external id on tag %d: %w", id, translate(res.Error))
	}
	return res.RowsAffected > 0, nil
}

// Attach associates a tag with an entity and increments usage_count.
func (s *Store) Attach(ctx context.Context, tagID int64, t store.Tagging) (bool, error) {
	if err := validate.Tagging(t.TaggableType, t.TaggableID, t.Context); err != nil {
		return false, err
	}

	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&tagRow{}).Where("id = ?", tagID).Count(&n).Error; err != nil {
			return fmt.Errorf("check tag %d: %w", tagID, err)
		}
		if n == 0 {
			return store.ErrNotFound
		}

		row := taggingRow{
			TagID:        tagID,
			TaggableType: t.TaggableType,
			TaggableID:   t.TaggableID,
			Context:      t.Context,
			CreatedAt:    time.Now().Unix(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("insert tagging: %w", res.Error)
		}
		if added = res.RowsAffected > 0; !added {
			return nil
		}
		return tx.Model(&tagRow{}).Where("id = ?", tagID).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
	})
	return added, err
}

// Detach removes an association and decrements usage_count.
func (s *Store) Detach(ctx context.Context, tagID int64, t store.Tagging) (bool, error) {
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("tag_id = ? AND taggable_type = ? AND taggable_id = ? AND context = ?",
			tagID, t.TaggableType, t.TaggableID, t.Context).Delete(&taggingRow{})
		if res.Error != nil {
			return fmt.Errorf("delete tagging: %w", res.Error)
		}
		if removed = res.RowsAffected > 0; !removed {
			return nil
		}
		return tx.Model(&tagRow{}).Where("id = ?", tagID).
			UpdateColumn("usage_count", gorm.Expr("GREATEST(usage_count - 1, 0)")).Error
	})
	return removed, err
}

// find runs q and converts the rows.
func (s *Store) find(ctx context.Context, op string, q *gorm.DB) ([]store.Tag, error) {
	var rows []tagRow
	if err := q.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toTags(rows), nil
}

// translate maps GORM's duplicate key error to store.ErrConstraint.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", store.ErrConstraint, err)
	}
	return err
}

func normLimit(limit int) int {
	if limit <= 0 {
		return store.DefaultLimit
	}
	return limit
}

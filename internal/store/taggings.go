// taggings.go implements associations between tags and host entities.
//
// usage_count is denormalised onto tags so MostUsed and LeastUsed stay a
// single indexed scan. Attach and Detach keep it in step with the taggings
// table inside one transaction.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jpl-au/tagd/internal/validate"
)

// Attach associates a tag with an entity and increments usage_count.
// Reports false when the association already existed.
func (s *SQLiteStore) Attach(ctx context.Context, tagID int64, t Tagging) (bool, error) {
	if err := validate.Tagging(t.TaggableType, t.TaggableID, t.Context); err != nil {
		return false, err
	}

	var added bool
	err := s.Tx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM tags WHERE id = ?`, tagID); err != nil {
			return fmt.Errorf("check tag %d: %w", tagID, err)
		}
		if exists == 0 {
			return ErrNotFound
		}

		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO taggings (tag_id, taggable_type, taggable_id, context, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			tagID, t.TaggableType, t.TaggableID, t.Context, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("insert tagging: %w", err)
		}
		if added, err = affected(res); err != nil || !added {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, tagID); err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
		return nil
	})
	return added, err
}

// Detach removes an association and decrements usage_count. Reports false
// when it did not exist.
func (s *SQLiteStore) Detach(ctx context.Context, tagID int64, t Tagging) (bool, error) {
	var removed bool
	err := s.Tx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM taggings
			WHERE tag_id = ? AND taggable_type = ? AND taggable_id = ? AND context = ?`,
			tagID, t.TaggableType, t.TaggableID, t.Context)
		if err != nil {
			return fmt.Errorf("delete tagging: %w", err)
		}
		if removed, err = affected(res); err != nil || !removed {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET usage_count = MAX(usage_count - 1, 0) WHERE id = ?`, tagID); err != nil {
			return fmt.Errorf("decrement usage: %w", err)
		}
		return nil
	})
	return removed, err
}

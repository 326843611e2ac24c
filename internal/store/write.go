// write.go implements tag creation and modification.
//
// Create is the only path that inserts tags. A uniqueness violation leaves
// nothing behind: the insert runs in its own transaction, and the error is
// translated to ErrConstraint after rollback so callers can re-read and retry.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jpl-au/tagd/internal/validate"
)

// Create inserts a new tag with a fresh external id unless opts supplies one.
func (s *SQLiteStore) Create(ctx context.Context, name string, opts CreateOptions) (*Tag, error) {
	if err := validate.Name(name); err != nil {
		return nil, err
	}

	t := Tag{
		Name:       name,
		NameKey:    s.policy.Key(name),
		ExternalID: opts.ExternalID,
		Category:   opts.Category,
		Enabled:    true,
		CreatedAt:  time.Now().Unix(),
	}
	if t.ExternalID == "" {
		t.ExternalID = uuid.NewString()
	}

	err := s.Tx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO tags (name, name_key, external_id, category, enabled, usage_count, created_at)
			VALUES (?, ?, ?, ?, 1, 0, ?)`,
			t.Name, t.NameKey, t.ExternalID, nullable(t.Category), t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert tag %q: %w", name, translate(err))
		}
		t.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Rename overwrites a tag's display name and key. Reports false when id
// does not exist. A collision returns ErrConstraint.
func (s *SQLiteStore) Rename(ctx context.Context, id int64, name string) (bool, error) {
	if err := validate.Name(name); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tags SET name = ?, name_key = ? WHERE id = ?`,
		name, s.policy.Key(name), id)
	if err != nil {
		return false, fmt.Errorf("rename tag %d: %w", id, translate(err))
	}
	return affected(res)
}

// SetEnabled sets the enabled flag. Idempotent; reports false when id does
// not exist.
func (s *SQLiteStore) SetEnabled(ctx context.Context, id int64, enabled bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tags SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return false, fmt.Errorf("set enabled on tag %d: %w", id, err)
	}
	return affected(res)
}

// Delete removes a tag. Taggings go with it through ON DELETE CASCADE.
// Returns ErrNotFound if the tag doesn't exist.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// CountMissingExternalIDs returns how many tags lack an external id.
func (s *SQLiteStore) CountMissingExternalIDs(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tags WHERE external_id IS NULL`); err != nil {
		return 0, fmt.Errorf("count missing external ids: %w", err)
	}
	return n, nil
}

// MissingExternalIDs returns the next page of tags lacking an external id
// after afterID, in id order.
func (s *SQLiteStore) MissingExternalIDs(ctx context.Context, afterID int64, limit int) ([]Tag, error) {
	q := `SELECT ` + tagColumns + ` FROM tags t
		WHERE t.external_id IS NULL AND t.id > ?
		ORDER BY t.id LIMIT ?`
	return s.selectTags(ctx, "tags missing external id", q, afterID, limit)
}

// SetExternalID assigns externalID to a tag that has none. Reports false
// when the tag is missing or already has an id.
func (s *SQLiteStore) SetExternalID(ctx context.Context, id int64, externalID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tags SET external_id = ? WHERE id = ? AND external_id IS NULL`, externalID, id)
	if err != nil {
		return false, fmt.Errorf("set external id on tag %d: %w", id, translate(err))
	}
	return affected(res)
}

// affected reports whether res touched at least one row.
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// nullable maps empty strings to NULL so optional columns stay unset.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

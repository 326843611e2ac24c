// stats.go implements aggregate queries for operational visibility.

package store

import (
	"context"
	"fmt"
)

// Stats returns aggregate counts over tags and taggings.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := Stats{Policy: s.policy.Mode()}

	err := s.db.QueryRowxContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN enabled = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN external_id IS NULL THEN 1 ELSE 0 END), 0)
		FROM tags`).Scan(&st.Tags, &st.Enabled, &st.MissingExternalIDs)
	if err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}
	st.Disabled = st.Tags - st.Enabled

	err = s.db.QueryRowxContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT context) FROM taggings`).
		Scan(&st.Taggings, &st.Contexts)
	if err != nil {
		return nil, fmt.Errorf("count taggings: %w", err)
	}
	return &st, nil
}

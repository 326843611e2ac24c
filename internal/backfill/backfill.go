// Package backfill assigns external ids to tags created before external ids
// existed.
//
// Rows are walked in id order with keyset pagination and updated one at a
// time, with no enclosing transaction, so the job can run against a live
// store and be interrupted and re-run safely. A row that gained an id in the
// meantime is left alone.
package backfill

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jpl-au/tagd/internal/store"
)

// BatchSize is the number of rows read per page.
const BatchSize = 500

// Step reports progress after each row.
type Step struct {
	Done       int64
	Total      int64
	Tag        store.Tag
	ExternalID string
	Skipped    bool // The row already had an id when the update ran
}

// Result summarises a run.
type Result struct {
	Total   int64 `json:"total"`
	Updated int64 `json:"updated"`
	Skipped int64 `json:"skipped"`
}

// Run assigns a fresh UUID to every tag lacking an external id. onStep, if
// not nil, is called after each row.
func Run(ctx context.Context, s store.Backfiller, onStep func(Step)) (Result, error) {
	total, err := s.CountMissingExternalIDs(ctx)
	if err != nil {
		return Result{}, err
	}

	res := Result{Total: total}
	var done, after int64
	for done < total {
		page, err := s.MissingExternalIDs(ctx, after, BatchSize)
		if err != nil {
			return res, err
		}
		if len(page) == 0 {
			break
		}

		for _, t := range page {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			id := uuid.NewString()
			ok, err := s.SetExternalID(ctx, t.ID, id)
			if err != nil {
				return res, fmt.Errorf("tag %d: %w", t.ID, err)
			}
			if ok {
				res.Updated++
				t.ExternalID = id
			} else {
				res.Skipped++
				id = ""
			}

			done++
			after = t.ID
			if onStep != nil {
				onStep(Step{Done: done, Total: total, Tag: t, ExternalID: id, Skipped: !ok})
			}
			if done == total {
				break
			}
		}
	}
	return res, nil
}

// maint.go implements the operator commands: backfill and stats.

package core

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/progress"
	"github.com/jpl-au/tagd/internal/tag"
)

func (e *Extension) newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Assign external ids to tags missing one",
		Long: `Assign a fresh external id to every tag created without one.

Rows are updated one at a time, so backfill can run against a live store
and be interrupted and re-run safely. Progress is written to stderr.`,
		Args: cobra.NoArgs,
		RunE: e.runBackfill,
	}
}

func (e *Extension) runBackfill(c *cobra.Command, _ []string) error {
	w := cmd.Out()
	newProgress := progress.New
	if cmd.JSON() {
		w = io.Discard
		newProgress = nil
	}

	result, err := tag.Backfill(c.Context(), w, e.svc, newProgress)

	log.Event("core:backfill", "backfill").
		Author(cmd.Author()).
		Detail("total", result.Total).
		Detail("updated", result.Updated).
		Detail("skipped", result.Skipped).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("backfill: %w", err))
	}
	return cmd.PrintJSON(result)
}

func (e *Extension) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tag and association counts",
		Args:  cobra.NoArgs,
		RunE:  e.runStats,
	}
}

func (e *Extension) runStats(c *cobra.Command, _ []string) error {
	w := cmd.Out()
	if cmd.JSON() {
		w = io.Discard
	}

	st, err := tag.Stats(c.Context(), w, e.svc)

	log.Event("core:stats", "stats").Author(cmd.Author()).Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("stats: %w", err))
	}
	return cmd.PrintJSON(st)
}

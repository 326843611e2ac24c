// init.go implements the "tagd init" command.
//
// Init runs before a store exists and fixes the store's case policy for
// its lifetime. It does not create config; that is "tagd config".

package core

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/internal/catalog"
	"github.com/jpl-au/tagd/internal/log"
)

func newInitCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "init",
		Short: "Initialise a new tagd store",
		Long: `Creates a .tagd/tagd.db database in the current directory.

Use --db to create additional databases:
  tagd init --db work    # creates .tagd/tagd-work.db

Use --dir to create in a different directory:
  tagd init --dir /path/to/project

Use --strict to compare tag names case-sensitively. The case policy is
recorded in the store and cannot be changed later; without --strict it
comes from tags.strict_case_match, defaulting to case-insensitive.

With store.driver set to postgres, init creates the schema in store.dsn
and records the case policy there. --force is rejected for postgres; drop
the tags, taggings and settings tables to start over.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
	c.Flags().Bool(extension.FlagStrict, false, "Compare tag names case-sensitively")
	return c
}

func runInit(c *cobra.Command, _ []string) error {
	db, dir := cmd.DB(), cmd.Dir()

	strict := cmd.StrictOverride()
	if c.Flags().Changed(extension.FlagStrict) {
		v, _ := c.Flags().GetBool(extension.FlagStrict)
		strict = &v
	}

	path, pol, err := catalog.Init(c.Context(), cmd.Force(), db, dir, strict)

	log.Event("core:init", "init").
		Author(cmd.Author()).
		Detail("db", db).
		Detail("dir", dir).
		Detail("strict", strict != nil && *strict).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("init: %w", err))
	}

	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"path": path, "policy": pol.Mode()})
	}
	fmt.Fprintf(cmd.Out(), "Initialised tagd store in %s (%s case policy)\n", filepath.ToSlash(path), pol.Mode())
	return nil
}

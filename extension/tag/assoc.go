// assoc.go implements the attach, detach and tags commands that associate
// tags with external entities.

package tag

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/internal/format"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/service"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/tag"
)

func (e *Extension) newAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <type> <id> <context> <name>...",
		Short: "Tag an entity",
		Long: `Resolve names (creating missing tags) and attach them to an entity in a context.
Attaching a tag that is already attached is a no-op.

  tagd attach User 42 skills Go SQL`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(c *cobra.Command, args []string) error {
			return e.associate(c, "attach", args, tag.Attach)
		},
	}
}

func (e *Extension) newDetachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detach <type> <id> <context> <name>...",
		Short: "Remove tags from an entity",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(c *cobra.Command, args []string) error {
			return e.associate(c, "detach", args, tag.Detach)
		},
	}
}

type associateFunc func(ctx context.Context, w io.Writer, svc service.Service, t store.Tagging, names []string) (tag.AttachResult, error)

func (e *Extension) associate(c *cobra.Command, action string, args []string, fn associateFunc) error {
	t := store.Tagging{TaggableType: args[0], TaggableID: args[1], Context: args[2]}
	names := args[3:]

	l := log.Event("tag:"+action, action).
		Author(cmd.Author()).
		Tag(strings.Join(names, ",")).
		Detail("taggable", t.TaggableType+"/"+t.TaggableID).
		Detail("context", t.Context)

	result, err := fn(c.Context(), writer(), e.svc, t, names)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("%s: %w", action, err))
	}

	l.Detail("changed", result.Changed).Write(nil)
	return cmd.PrintJSON(result)
}

func (e *Extension) newTagsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "tags <type> <id>",
		Short: "Tags attached to an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			tagContext, _ := c.Flags().GetString(extension.FlagContext)
			t := store.Tagging{TaggableType: args[0], TaggableID: args[1], Context: tagContext}
			return e.list(c, "tag:tags", args, func(style format.Style) (tag.ListResult, error) {
				return tag.TagsFor(c.Context(), writer(), e.svc, t, style)
			})
		},
	}
	c.Flags().String(extension.FlagContext, "", "Limit to one context")
	addListFlags(c)
	return c
}

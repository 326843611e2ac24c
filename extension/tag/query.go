// query.go implements the resolve and read-only query commands.

package tag

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/internal/format"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/tag"
)

func (e *Extension) newResolveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "resolve <name>...",
		Short: "Resolve names to tags, creating missing ones",
		Long: `Resolve names to tags, creating any that do not exist.

Prints one tag per name, in the order given. Names that differ only in case
resolve to the same tag unless the store was initialised with --strict.

  tagd resolve Go SQL "big data"
  tagd resolve --category lang Rust`,
		Args: cobra.MinimumNArgs(1),
		RunE: e.runResolve,
	}
	c.Flags().StringP(extension.FlagCategory, "c", "", "Category for newly created tags")
	return c
}

func (e *Extension) runResolve(c *cobra.Command, args []string) error {
	category, _ := c.Flags().GetString(extension.FlagCategory)

	l := log.Event("tag:resolve", "resolve").
		Author(cmd.Author()).
		Tag(strings.Join(args, ",")).
		Detail("category", category)

	result, err := tag.Resolve(c.Context(), writer(), e.svc, args, category)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("resolve: %w", err))
	}

	l.Detail("count", result.Count).Write(nil)
	return cmd.PrintJSON(result)
}

func (e *Extension) newFindCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "find <name>...",
		Short: "Find existing tags by exact name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return e.list(c, "tag:find", args, func(style format.Style) (tag.ListResult, error) {
				return tag.Find(c.Context(), writer(), e.svc, args, style)
			})
		},
	}
	addListFlags(c)
	return c
}

func (e *Extension) newSearchCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "search <pattern>...",
		Short: "Find tags whose name contains a pattern",
		Long: `Find tags whose name contains any of the patterns, ignoring case.
% and _ match literally.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return e.list(c, "tag:search", args, func(style format.Style) (tag.ListResult, error) {
				return tag.Search(c.Context(), writer(), e.svc, args, style)
			})
		},
	}
	addListFlags(c)
	return c
}

func (e *Extension) newLsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all tags",
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return e.list(c, "tag:ls", nil, func(style format.Style) (tag.ListResult, error) {
				return tag.List(c.Context(), writer(), e.svc, style)
			})
		},
	}
	addListFlags(c)
	return c
}

func (e *Extension) newTopCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "top",
		Short: "Most used tags",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			limit, _ := c.Flags().GetInt(extension.FlagLimit)
			return e.list(c, "tag:top", nil, func(style format.Style) (tag.ListResult, error) {
				return tag.Top(c.Context(), writer(), e.svc, limit, style)
			})
		},
	}
	c.Flags().IntP(extension.FlagLimit, "n", 0, "Maximum tags (default: tags.default_limit)")
	addListFlags(c)
	return c
}

func (e *Extension) newBottomCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "bottom",
		Short: "Least used tags",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			limit, _ := c.Flags().GetInt(extension.FlagLimit)
			return e.list(c, "tag:bottom", nil, func(style format.Style) (tag.ListResult, error) {
				return tag.Bottom(c.Context(), writer(), e.svc, limit, style)
			})
		},
	}
	c.Flags().IntP(extension.FlagLimit, "n", 0, "Maximum tags (default: tags.default_limit)")
	addListFlags(c)
	return c
}

func (e *Extension) newContextCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "context <name>",
		Short: "Tags used in a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return e.list(c, "tag:context", args, func(style format.Style) (tag.ListResult, error) {
				return tag.ForContext(c.Context(), writer(), e.svc, args[0], style)
			})
		},
	}
	addListFlags(c)
	return c
}

func (e *Extension) newCategoryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "category <name>...",
		Short: "Tags in any of the given categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			off, _ := c.Flags().GetBool(extension.FlagDisabled)
			return e.list(c, "tag:category", args, func(style format.Style) (tag.ListResult, error) {
				return tag.Category(c.Context(), writer(), e.svc, args, !off, style)
			})
		},
	}
	c.Flags().Bool(extension.FlagDisabled, false, "Match disabled tags instead of enabled ones")
	addListFlags(c)
	return c
}

// list runs a listing and records it in the audit log.
func (e *Extension) list(c *cobra.Command, source string, query []string, fn func(format.Style) (tag.ListResult, error)) error {
	l := log.Event(source, "list").
		Author(cmd.Author()).
		Detail("query", strings.Join(query, ","))

	result, err := fn(listStyle(c))
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("%s: %w", c.Name(), err))
	}

	l.Detail("count", result.Count).Write(nil)
	return cmd.PrintJSON(result)
}

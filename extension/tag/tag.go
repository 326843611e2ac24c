// Package tag provides the tag extension for tagd.
// It registers the resolve, query, update and association commands.
package tag

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/internal/format"
	"github.com/jpl-au/tagd/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the tag extension.
type Extension struct {
	svc service.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "tag".
func (e *Extension) Name() string { return "tag" }

// Init receives the shared service from the extension context.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	return nil
}

// Commands returns the tag commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		e.newResolveCmd(),
		e.newFindCmd(),
		e.newSearchCmd(),
		e.newLsCmd(),
		e.newTopCmd(),
		e.newBottomCmd(),
		e.newContextCmd(),
		e.newCategoryCmd(),
		e.newRenameCmd(),
		e.newEnableCmd(),
		e.newDisableCmd(),
		e.newRmCmd(),
		e.newAttachCmd(),
		e.newDetachCmd(),
		e.newTagsCmd(),
	}
}

// MCPTools returns nil - MCP tag tools are in internal/mcp.
func (e *Extension) MCPTools() []extension.MCPTool {
	return nil
}

// writer returns the human output writer, discarding it in JSON mode.
func writer() io.Writer {
	if cmd.JSON() {
		return io.Discard
	}
	return cmd.Out()
}

// isTTY reports whether stdout is an interactive terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// addListFlags registers the output flags shared by listing commands.
func addListFlags(c *cobra.Command) {
	c.Flags().BoolP(extension.FlagLong, "l", false, "Long format (id, uses, state, created, category)")
	c.Flags().Bool(extension.FlagRaw, false, "Plain columns even on a terminal")
}

// listStyle picks the listing style. Long output on a terminal is rendered
// as a markdown table unless --raw is given.
func listStyle(c *cobra.Command) format.Style {
	long, _ := c.Flags().GetBool(extension.FlagLong)
	raw, _ := c.Flags().GetBool(extension.FlagRaw)
	switch {
	case long && !raw && isTTY():
		return format.Table
	case long:
		return format.Long
	default:
		return format.Plain
	}
}

// guide.go implements the "tagd guide" command and the tagd_guide MCP tool.
//
// Terminal output is rendered through glamour; pipes get raw markdown so
// the page can be fed to an LLM as context.

package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/guide"
	"github.com/jpl-au/tagd/internal/format"
)

func newGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guide [page]",
		Short: "Show the tagd usage guide",
		Long: `Outputs the tagd guide for humans and LLMs.

  tagd guide           # main guide
  tagd guide config    # configuration keys and environment
  tagd guide mcp       # MCP tools and resources`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			content, err := guide.Get(name)
			if err != nil {
				available, listErr := guide.List()
				if listErr != nil {
					return listErr
				}
				return cmd.PrintJSONError(fmt.Errorf("guide %q not found. Available: %s", name, strings.Join(available, ", ")))
			}

			if cmd.JSON() {
				return cmd.PrintJSON(map[string]string{"page": name, "content": content})
			}
			if term.IsTerminal(int(os.Stdout.Fd())) {
				content = format.Render(content)
			}
			fmt.Fprint(cmd.Out(), content)
			return nil
		},
	}
}

func guideTool() extension.MCPTool {
	return extension.MCPTool{
		Tool: mcp.NewTool("tagd_guide",
			mcp.WithDescription("Read the tagd guide. Pages: (default), config, mcp"),
			mcp.WithString("page", mcp.Description("Page name, empty for the main guide")),
		),
		Handler: func(_ context.Context, _ extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			page := ""
			if args, ok := req.Params.Arguments.(map[string]any); ok {
				page, _ = args["page"].(string)
			}
			content, err := guide.Get(page)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(content), nil
		},
	}
}

// Package core provides the core extension for tagd.
// It registers commands: init, config, serve, http, backfill, stats, version, guide.
package core

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/internal/service"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/version"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the core extension.
type Extension struct {
	svc service.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Storeless     = (*Extension)(nil)
)

// Name returns "core".
func (e *Extension) Name() string { return "core" }

// Init receives the shared service for the maintenance commands.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	return nil
}

// Commands returns all core CLI commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		newInitCmd(),
		newConfigCmd(),
		newServeCmd(),
		newHTTPCmd(),
		e.newBackfillCmd(),
		e.newStatsCmd(),
		newVersionCmd(),
		newGuideCmd(),
	}
}

// MCPTools returns tagd_version, which reports the build alongside the
// store it is serving, and tagd_guide.
func (e *Extension) MCPTools() []extension.MCPTool {
	return []extension.MCPTool{
		{
			Tool: mcp.NewTool("tagd_version",
				mcp.WithDescription("Build version and the case policy of the open store"),
			),
			Handler: versionTool,
		},
		guideTool(),
	}
}

func versionTool(_ context.Context, extCtx extension.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc := extCtx.Service()
	data, err := store.MarshalJSON(struct {
		version.Info
		Policy string `json:"policy"`
		Store  string `json:"store"`
	}{version.Get(), svc.Policy().Mode(), svc.DBPath()})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal version: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// NoStoreCommands returns commands that manage their own service lifecycle.
// serve and http: long-running servers that open the store themselves.
// version and guide: no database access.
func (e *Extension) NoStoreCommands() []string {
	return []string{"serve", "http", "version", "guide"}
}

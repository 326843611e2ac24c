// tools_init.go implements the MCP tool for initialising a new store.
//
// This tool works without an existing store, allowing LLMs to bootstrap
// a new tagd repository. Other tools require initialisation first.

package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/tagd/internal/catalog"
	"github.com/jpl-au/tagd/internal/log"
)

// initStore handles tagd_init tool calls.
func (h *handlers) initStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.svc != nil {
		return mcp.NewToolResultError("store already initialised"), nil
	}

	var strict *bool
	if hasArg(req, "strict") {
		v := getBool(req, "strict", false)
		strict = &v
	}

	path, _, err := catalog.Init(ctx, false, h.db, h.dir, strict)

	log.Event("mcp:tagd_init", "init").Author(author(req)).Detail("strict", strict != nil && *strict).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	svc, err := catalog.New(ctx, catalog.Options{DB: h.db, Dir: h.dir, Strict: strict, Logger: h.logger})
	if err != nil {
		return mcp.NewToolResultError("init succeeded but failed to open store: " + err.Error()), nil
	}
	h.svc = svc

	h.logger.Info("store initialised", "path", path, "policy", svc.Policy().Mode())
	return mcp.NewToolResultText("store initialised (" + svc.Policy().Mode() + " case policy)"), nil
}

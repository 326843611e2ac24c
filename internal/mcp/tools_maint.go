// tools_maint.go implements MCP tools for operator maintenance.

package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/tag"
)

// backfill handles tagd_backfill tool calls.
func (h *handlers) backfill(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	result, err := tag.Backfill(ctx, io.Discard, svc, nil)

	log.Event("mcp:tagd_backfill", "backfill").
		Author(author(req)).
		Detail("total", result.Total).
		Detail("updated", result.Updated).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// stats handles tagd_stats tool calls.
func (h *handlers) stats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	st, err := svc.Stats(ctx)

	log.Event("mcp:tagd_stats", "stats").Author(author(req)).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

// tools_update.go implements MCP tools that modify existing tags.
//
// An unknown tag is not an error for rename and set_enabled: the result
// reports updated:false so an LLM can carry on without special handling.
// Delete is stricter and fails on an unknown tag.

package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/tag"
)

// rename handles tagd_rename tool calls.
func (h *handlers) rename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError("ref is required"), nil //nolint:nilerr
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil //nolint:nilerr
	}

	result, err := tag.Rename(ctx, io.Discard, svc, ref, name, false)

	l := log.Event("mcp:tagd_rename", "rename").
		Author(author(req)).
		Tag(ref).
		Resolved(name).
		Detail("updated", result.Updated)
	if result.Tag != nil {
		l.ResultID(result.Tag.ID)
	}
	l.Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// setEnabled handles tagd_set_enabled tool calls.
func (h *handlers) setEnabled(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError("ref is required"), nil //nolint:nilerr
	}
	if !hasArg(req, "enabled") {
		return mcp.NewToolResultError("enabled is required"), nil
	}
	enabled := getBool(req, "enabled", true)

	result, err := tag.SetEnabled(ctx, io.Discard, svc, ref, enabled)

	log.Event("mcp:tagd_set_enabled", result.Action).
		Author(author(req)).
		Tag(ref).
		Detail("updated", result.Updated).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// deleteTag handles tagd_delete tool calls.
func (h *handlers) deleteTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError("ref is required"), nil //nolint:nilerr
	}

	result, err := tag.Remove(ctx, io.Discard, svc, ref)

	log.Event("mcp:tagd_delete", "delete").Author(author(req)).Tag(ref).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// tools_associations.go implements MCP tools for tagging entities.

package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/tagd/internal/format"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/tag"
)

// tagging reads the entity reference shared by the association tools.
func tagging(req mcp.CallToolRequest) store.Tagging {
	return store.Tagging{
		TaggableType: getString(req, "taggable_type", ""),
		TaggableID:   getString(req, "taggable_id", ""),
		Context:      getString(req, "context", ""),
	}
}

// attach handles tagd_attach tool calls.
func (h *handlers) attach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	t := tagging(req)
	names := getStrings(req, "names")
	result, err := tag.Attach(ctx, io.Discard, svc, t, names)

	log.Event("mcp:tagd_attach", "attach").
		Author(author(req)).
		Detail("taggable", t.TaggableType+":"+t.TaggableID).
		Detail("context", t.Context).
		Detail("names", names).
		Detail("added", result.Changed).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// detach handles tagd_detach tool calls.
func (h *handlers) detach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	t := tagging(req)
	names := getStrings(req, "names")
	result, err := tag.Detach(ctx, io.Discard, svc, t, names)

	log.Event("mcp:tagd_detach", "detach").
		Author(author(req)).
		Detail("taggable", t.TaggableType+":"+t.TaggableID).
		Detail("context", t.Context).
		Detail("names", names).
		Detail("removed", result.Changed).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// tagsFor handles tagd_tags_for tool calls.
func (h *handlers) tagsFor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	t := tagging(req)
	result, err := tag.TagsFor(ctx, io.Discard, svc, t, format.Plain)

	log.Event("mcp:tagd_tags_for", "tags_for").
		Author(author(req)).
		Detail("taggable", t.TaggableType+":"+t.TaggableID).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

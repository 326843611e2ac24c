// tools_tags.go implements MCP tools for resolving and querying tags.
//
// Resolve is the only tool here that writes; the rest are read-only queries
// returning the same JSON shape as the CLI's -o json output.

package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/tagd/internal/format"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/tag"
)

// resolve handles tagd_resolve tool calls.
func (h *handlers) resolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	names := getStrings(req, "names")
	if len(names) == 0 {
		return mcp.NewToolResultError("names is required"), nil
	}
	category := getString(req, "category", "")

	result, err := tag.Resolve(ctx, io.Discard, svc, names, category)

	log.Event("mcp:tagd_resolve", "resolve").
		Author(author(req)).
		Detail("names", names).
		Detail("category", category).
		Detail("count", result.Count).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// resolveOne handles tagd_resolve_one tool calls.
func (h *handlers) resolveOne(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil //nolint:nilerr
	}
	category := getString(req, "category", "")

	t, err := svc.ResolveOne(ctx, name, category)

	l := log.Event("mcp:tagd_resolve_one", "resolve").Author(author(req)).Tag(name)
	if err != nil {
		l.Write(err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	l.Resolved(t.Name).ResultID(t.ID).Write(nil)

	return jsonResult(t.ToJSON())
}

// find handles tagd_find tool calls.
func (h *handlers) find(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	names := getStrings(req, "names")
	result, err := tag.Find(ctx, io.Discard, svc, names, format.Plain)

	log.Event("mcp:tagd_find", "find").Author(author(req)).Detail("names", names).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// search handles tagd_search tool calls.
func (h *handlers) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	patterns := getStrings(req, "patterns")
	result, err := tag.Search(ctx, io.Discard, svc, patterns, format.Plain)

	log.Event("mcp:tagd_search", "search").Author(author(req)).Detail("patterns", patterns).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// list handles tagd_list tool calls.
func (h *handlers) list(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	result, err := tag.List(ctx, io.Discard, svc, format.Plain)

	log.Event("mcp:tagd_list", "list").Author(author(req)).Detail("count", result.Count).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// mostUsed handles tagd_most_used tool calls.
func (h *handlers) mostUsed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	limit := getInt(req, "limit", 0)
	result, err := tag.Top(ctx, io.Discard, svc, limit, format.Plain)

	log.Event("mcp:tagd_most_used", "most_used").Author(author(req)).Detail("limit", limit).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// leastUsed handles tagd_least_used tool calls.
func (h *handlers) leastUsed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	limit := getInt(req, "limit", 0)
	result, err := tag.Bottom(ctx, io.Discard, svc, limit, format.Plain)

	log.Event("mcp:tagd_least_used", "least_used").Author(author(req)).Detail("limit", limit).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// forContext handles tagd_context tool calls.
func (h *handlers) forContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	name, err := req.RequireString("context")
	if err != nil {
		return mcp.NewToolResultError("context is required"), nil //nolint:nilerr
	}
	result, err := tag.ForContext(ctx, io.Discard, svc, name, format.Plain)

	log.Event("mcp:tagd_context", "context").Author(author(req)).Detail("context", name).Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// category handles tagd_category tool calls.
func (h *handlers) category(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc, errRes := h.requireInit()
	if errRes != nil {
		return errRes, nil
	}

	categories := getStrings(req, "categories")
	enabled := getBool(req, "enabled", true)
	result, err := tag.Category(ctx, io.Discard, svc, categories, enabled, format.Plain)

	log.Event("mcp:tagd_category", "category").
		Author(author(req)).
		Detail("categories", categories).
		Detail("enabled", enabled).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

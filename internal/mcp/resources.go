// resources.go implements MCP resource handlers for tag access.
//
// Resources give read-only access by URI so an LLM client can load tag
// context without calling a tool. URIs follow tagd://tags/{ref}, where ref
// is an id or exact name, and tagd://contexts/{name}.

package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/tagd/internal/store"
)

var (
	// ErrInvalidURI indicates a malformed resource URI.
	ErrInvalidURI = errors.New("invalid URI")
	// ErrEmptyRef indicates a resource URI with nothing after the prefix.
	ErrEmptyRef = errors.New("empty resource reference")
)

const (
	tagPrefix     = "tagd://tags/"
	contextPrefix = "tagd://contexts/"
)

// readTag handles tagd://tags/{ref} resource requests.
func (h *handlers) readTag(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	svc := h.service()
	if svc == nil {
		return nil, errors.New(ErrNotInitialised)
	}

	ref, err := parseURI(req.Params.URI, tagPrefix)
	if err != nil {
		return nil, err
	}
	t, err := svc.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, t.ToJSON())
}

// readContext handles tagd://contexts/{name} resource requests.
func (h *handlers) readContext(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	svc := h.service()
	if svc == nil {
		return nil, errors.New(ErrNotInitialised)
	}

	name, err := parseURI(req.Params.URI, contextPrefix)
	if err != nil {
		return nil, err
	}
	tags, err := svc.ForContext(ctx, name)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, store.TagsJSON(tags))
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := store.MarshalJSON(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// parseURI returns the unescaped reference following prefix.
func parseURI(uri, prefix string) (string, error) {
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	if rest == "" {
		return "", ErrEmptyRef
	}
	ref, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	return ref, nil
}

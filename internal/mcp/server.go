// Package mcp implements the Model Context Protocol server, exposing tagd
// operations to LLMs. Assistants can resolve, query and curate tags through
// a standardised protocol.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/internal/catalog"
	"github.com/jpl-au/tagd/internal/config"
	"github.com/jpl-au/tagd/internal/repo"
	"github.com/jpl-au/tagd/internal/service"
	"github.com/jpl-au/tagd/internal/version"
)

// ErrNotInitialised is returned by tools when the store has not been initialised.
// The LLM should call tagd_init to create a store before using other tools.
const ErrNotInitialised = "store not initialised - call tagd_init first"

// Options selects the database served.
type Options struct {
	DB  string
	Dir string
}

// Serve starts the MCP server over stdio.
//
// The server starts even if no store exists, so an LLM can call tagd_init
// rather than failing with an opaque error. Tools that need a store return
// ErrNotInitialised until then.
func Serve(ctx context.Context, opts Options) error {
	// stdout is reserved for MCP JSON-RPC messages
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	h := &handlers{db: opts.DB, dir: opts.Dir, logger: logger}

	svc, err := catalog.New(ctx, catalog.Options{DB: opts.DB, Dir: opts.Dir, Logger: logger})
	if err != nil && !errors.Is(err, repo.ErrNotInitialised) {
		slog.Error("failed to open store", "error", err)
		return err
	}
	if err == nil {
		h.svc = svc
	} else {
		slog.Info("tagd not initialised, starting in uninitialised mode - call tagd_init to create store")
	}

	s := newServer(h, extensionTools())
	slog.Info("tagd MCP server ready", "version", version.Short(), "transport", "stdio")

	err = server.ServeStdio(s)
	// tagd_init may have opened the store after startup
	if svc := h.service(); svc != nil {
		svc.Close()
	}
	if errors.Is(err, context.Canceled) {
		slog.Info("server stopped")
		return nil
	}
	return err
}

// handlers provides MCP request handlers with access to the tag service.
// svc is nil until a store exists.
type handlers struct {
	db     string
	dir    string
	logger *slog.Logger

	mu  sync.RWMutex
	svc service.Service
}

// service returns the current service, or nil if not initialised.
func (h *handlers) service() service.Service {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.svc
}

// requireInit returns the service, or an error result if the store is not
// initialised.
func (h *handlers) requireInit() (service.Service, *mcp.CallToolResult) {
	svc := h.service()
	if svc == nil {
		return nil, mcp.NewToolResultError(ErrNotInitialised)
	}
	return svc, nil
}

// newServer builds the MCP server with the core tools and any tools
// contributed by extensions.
func newServer(h *handlers, extra []extension.MCPTool) *server.MCPServer {
	s := server.NewMCPServer(
		"tagd",
		version.Short(),
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	registerResources(s, h)
	registerTools(s, h)
	for _, t := range extra {
		s.AddTool(t.Tool, h.extensionHandler(t.Handler))
	}
	return s
}

// extensionTools collects MCP tools from registered extensions.
func extensionTools() []extension.MCPTool {
	var tools []extension.MCPTool
	for _, ext := range extension.All() {
		tools = append(tools, ext.MCPTools()...)
	}
	return tools
}

// extensionHandler adapts an extension handler, supplying the extension
// context built from the current service.
func (h *handlers) extensionHandler(fn extension.MCPHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		svc, errRes := h.requireInit()
		if errRes != nil {
			return errRes, nil
		}
		cfg, err := config.Load()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return fn(ctx, extension.NewContext(svc, cfg), req)
	}
}

// registerResources adds URI-based access for direct tag reading.
func registerResources(s *server.MCPServer, h *handlers) {
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"tagd://tags/{ref}",
			"Tag",
			mcp.WithTemplateDescription("Read a tag by id or exact name"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		h.readTag,
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"tagd://contexts/{name}",
			"Context",
			mcp.WithTemplateDescription("Tags used in a context"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		h.readContext,
	)
}

// registerTools exposes tagd operations as MCP tools for LLM invocation.
func registerTools(s *server.MCPServer, h *handlers) {
	// Init - works without existing store
	s.AddTool(
		mcp.NewTool("tagd_init",
			mcp.WithDescription("Initialise a new tagd store. Call this first if other tools return 'store not initialised'."),
			mcp.WithBoolean("strict", mcp.Description("Compare tag names case-sensitively. Fixed for the life of the store")),
		),
		h.initStore,
	)

	s.AddTool(
		mcp.NewTool("tagd_resolve",
			mcp.WithDescription("Resolve tag names to tags, creating any that do not exist. Returns one tag per name, in order"),
			mcp.WithArray("names", mcp.Required(), mcp.Description("Tag names"), mcp.WithStringItems()),
			mcp.WithString("category", mcp.Description("Category for newly created tags")),
		),
		h.resolve,
	)

	s.AddTool(
		mcp.NewTool("tagd_resolve_one",
			mcp.WithDescription("Resolve a single tag name. Without strict case matching, an existing tag containing the name is preferred"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Tag name")),
			mcp.WithString("category", mcp.Description("Category if the tag is created")),
		),
		h.resolveOne,
	)

	s.AddTool(
		mcp.NewTool("tagd_find",
			mcp.WithDescription("Find existing tags by exact name (case policy applies). Creates nothing"),
			mcp.WithArray("names", mcp.Required(), mcp.Description("Tag names"), mcp.WithStringItems()),
		),
		h.find,
	)

	s.AddTool(
		mcp.NewTool("tagd_search",
			mcp.WithDescription("Find tags whose name contains any pattern, case-insensitively. % and _ match literally"),
			mcp.WithArray("patterns", mcp.Required(), mcp.Description("Substrings to search for"), mcp.WithStringItems()),
		),
		h.search,
	)

	s.AddTool(
		mcp.NewTool("tagd_list",
			mcp.WithDescription("List all tags"),
		),
		h.list,
	)

	s.AddTool(
		mcp.NewTool("tagd_most_used",
			mcp.WithDescription("Tags ordered by usage, most used first"),
			mcp.WithNumber("limit", mcp.Description("Maximum tags to return (default: configured limit, 20)")),
		),
		h.mostUsed,
	)

	s.AddTool(
		mcp.NewTool("tagd_least_used",
			mcp.WithDescription("Tags ordered by usage, least used first"),
			mcp.WithNumber("limit", mcp.Description("Maximum tags to return (default: configured limit, 20)")),
		),
		h.leastUsed,
	)

	s.AddTool(
		mcp.NewTool("tagd_context",
			mcp.WithDescription("Tags used at least once in a context (e.g. skills)"),
			mcp.WithString("context", mcp.Required(), mcp.Description("Context name")),
		),
		h.forContext,
	)

	s.AddTool(
		mcp.NewTool("tagd_category",
			mcp.WithDescription("Tags in any of the given categories"),
			mcp.WithArray("categories", mcp.Required(), mcp.Description("Category names"), mcp.WithStringItems()),
			mcp.WithBoolean("enabled", mcp.Description("Enabled state to match (default: true)")),
		),
		h.category,
	)

	s.AddTool(
		mcp.NewTool("tagd_rename",
			mcp.WithDescription("Rename a tag. Reports updated:false if the tag does not exist"),
			mcp.WithString("ref", mcp.Required(), mcp.Description("Tag id or exact name")),
			mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
			mcp.WithString("author", mcp.Description("Author attribution")),
		),
		h.rename,
	)

	s.AddTool(
		mcp.NewTool("tagd_set_enabled",
			mcp.WithDescription("Enable or disable a tag. Reports updated:false if the tag does not exist"),
			mcp.WithString("ref", mcp.Required(), mcp.Description("Tag id or exact name")),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("New enabled state")),
			mcp.WithString("author", mcp.Description("Author attribution")),
		),
		h.setEnabled,
	)

	s.AddTool(
		mcp.NewTool("tagd_delete",
			mcp.WithDescription("Delete a tag and all its associations"),
			mcp.WithString("ref", mcp.Required(), mcp.Description("Tag id or exact name")),
			mcp.WithString("author", mcp.Description("Author attribution")),
		),
		h.deleteTag,
	)

	s.AddTool(
		mcp.NewTool("tagd_attach",
			mcp.WithDescription("Tag an entity: resolve names (creating missing tags) and associate them in a context"),
			mcp.WithString("taggable_type", mcp.Required(), mcp.Description("Entity kind, e.g. User")),
			mcp.WithString("taggable_id", mcp.Required(), mcp.Description("Entity id")),
			mcp.WithString("context", mcp.Required(), mcp.Description("Context, e.g. skills")),
			mcp.WithArray("names", mcp.Required(), mcp.Description("Tag names"), mcp.WithStringItems()),
		),
		h.attach,
	)

	s.AddTool(
		mcp.NewTool("tagd_detach",
			mcp.WithDescription("Remove tags from an entity in a context"),
			mcp.WithString("taggable_type", mcp.Required(), mcp.Description("Entity kind")),
			mcp.WithString("taggable_id", mcp.Required(), mcp.Description("Entity id")),
			mcp.WithString("context", mcp.Required(), mcp.Description("Context")),
			mcp.WithArray("names", mcp.Required(), mcp.Description("Tag names"), mcp.WithStringItems()),
		),
		h.detach,
	)

	s.AddTool(
		mcp.NewTool("tagd_tags_for",
			mcp.WithDescription("Tags attached to an entity"),
			mcp.WithString("taggable_type", mcp.Required(), mcp.Description("Entity kind")),
			mcp.WithString("taggable_id", mcp.Required(), mcp.Description("Entity id")),
			mcp.WithString("context", mcp.Description("Limit to one context")),
		),
		h.tagsFor,
	)

	s.AddTool(
		mcp.NewTool("tagd_backfill",
			mcp.WithDescription("Assign external ids to tags created without one"),
		),
		h.backfill,
	)

	s.AddTool(
		mcp.NewTool("tagd_stats",
			mcp.WithDescription("Tag and association counts"),
		),
		h.stats,
	)

	s.AddTool(
		mcp.NewTool("tagd_config_get",
			mcp.WithDescription("Get a configuration value"),
			mcp.WithString("key", mcp.Description("Config key (e.g. tags.default_limit) or empty for all")),
		),
		h.configGet,
	)

	s.AddTool(
		mcp.NewTool("tagd_config_set",
			mcp.WithDescription("Set a configuration value. tags.strict_case_match only applies to new stores"),
			mcp.WithString("key", mcp.Required(), mcp.Description("Config key")),
			mcp.WithString("value", mcp.Required(), mcp.Description("Value to set")),
		),
		h.configSet,
	)
}

// serve.go implements the "tagd serve" and "tagd http" commands.
//
// Both block until interrupted and open the store themselves instead of
// using the shared service, so they are storeless.

package core

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpl-au/tagd/cmd"
	"github.com/jpl-au/tagd/extension"
	"github.com/jpl-au/tagd/internal/catalog"
	"github.com/jpl-au/tagd/internal/config"
	"github.com/jpl-au/tagd/internal/httpapi"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start MCP server",
		Long: `Start an MCP (Model Context Protocol) server over stdio for LLM integration.

Use --db to serve a specific database:
  tagd serve --db work    # serve tagd-work.db`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(c *cobra.Command, _ []string) error {
	return mcp.Serve(c.Context(), mcp.Options{DB: cmd.DB(), Dir: cmd.Dir()})
}

func newHTTPCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "http",
		Short: "Start the HTTP JSON API",
		Long: `Serve tag operations as a JSON API until interrupted.

The listen address comes from --addr, then http.addr, then 127.0.0.1:7070.
Write requests may name their author in the X-Tagd-Author header.`,
		Args: cobra.NoArgs,
		RunE: runHTTP,
	}
	c.Flags().String(extension.FlagAddr, "", "Listen address (default: http.addr)")
	return c
}

func runHTTP(c *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	addr, _ := c.Flags().GetString(extension.FlagAddr)
	if addr == "" {
		addr = cfg.HTTPAddr()
	}

	svc, err := catalog.New(ctx, catalog.Options{
		DB:     cmd.DB(),
		Dir:    cmd.Dir(),
		Strict: cmd.StrictOverride(),
		Logger: logger,
	})
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("open store: %w", err))
	}
	defer svc.Close()

	log.SetProject(svc.DBPath())

	err = httpapi.New(svc, logger).Serve(ctx, addr)

	log.Event("core:http", "serve").
		Author(cmd.Author()).
		Detail("addr", addr).
		Write(err)

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}


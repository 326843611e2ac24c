// Package httpapi serves tagd operations as a JSON API over HTTP.
//
// Routes mirror the CLI and MCP tools and return the same result shapes.
// Every request is logged to slog and every operation to the audit log.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jpl-au/tagd/internal/service"
	"github.com/jpl-au/tagd/internal/version"
)

// shutdownTimeout bounds how long Serve waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Server holds the service behind the API.
type Server struct {
	svc    service.Service
	logger *slog.Logger
}

// New creates a server for svc. A nil logger uses slog.Default.
func New(svc service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger}
}

// Handler returns the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog())

	r.GET("/health", s.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/resolve", s.resolve)
		v1.POST("/resolve_one", s.resolveOne)

		v1.GET("/tags", s.listTags)
		v1.GET("/tags/:ref", s.getTag)
		v1.PUT("/tags/:ref/name", s.rename)
		v1.PUT("/tags/:ref/enabled", s.setEnabled)
		v1.DELETE("/tags/:ref", s.deleteTag)

		v1.GET("/most_used", s.mostUsed)
		v1.GET("/least_used", s.leastUsed)
		v1.GET("/contexts/:name/tags", s.forContext)
		v1.GET("/categories", s.category)

		v1.GET("/taggables/:type/:id/tags", s.tagsFor)
		v1.POST("/taggables/:type/:id/tags", s.attach)
		v1.DELETE("/taggables/:type/:id/tags", s.detach)

		v1.POST("/backfill", s.backfill)
		v1.GET("/stats", s.stats)
	}
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("tagd HTTP API listening", "addr", addr, "version", version.Short())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version.Short(),
		"policy":    s.svc.Policy().Mode(),
	})
}

// requestID propagates X-Request-ID or assigns a new UUID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("requestId", id)
		c.Next()
	}
}

// accessLog writes one structured line per request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString("requestId"),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}
		s.logger.Info("request", attrs...)
	}
}

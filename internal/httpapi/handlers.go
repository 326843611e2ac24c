package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jpl-au/tagd/internal/format"
	"github.com/jpl-au/tagd/internal/log"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/tag"
)

// author returns the X-Tagd-Author header, defaulting to "http".
func author(c *gin.Context) string {
	if a := c.GetHeader("X-Tagd-Author"); a != "" {
		return a
	}
	return "http"
}

type resolveRequest struct {
	Names    []string `json:"names" binding:"required"`
	Category string   `json:"category"`
}

func (s *Server) resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := tag.Resolve(c.Request.Context(), io.Discard, s.svc, req.Names, req.Category)

	log.Event("http:resolve", "resolve").
		Author(author(c)).
		Detail("count", len(req.Names)).
		Detail("category", req.Category).
		Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type resolveOneRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (s *Server) resolveOne(c *gin.Context) {
	var req resolveOneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	t, err := s.svc.ResolveOne(c.Request.Context(), req.Name, req.Category)

	l := log.Event("http:resolve_one", "resolve").Author(author(c)).Tag(req.Name)
	if t != nil {
		l.TagID(t.ID).Resolved(t.Name)
	}
	l.Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t.ToJSON())
}

// listTags serves find (?name=), search (?q=) or a full listing.
func (s *Server) listTags(c *gin.Context) {
	ctx := c.Request.Context()
	names := c.QueryArray("name")
	patterns := c.QueryArray("q")

	var (
		result tag.ListResult
		err    error
		action string
	)
	switch {
	case len(names) > 0:
		action = "find"
		result, err = tag.Find(ctx, io.Discard, s.svc, names, format.Plain)
	case len(patterns) > 0:
		action = "search"
		result, err = tag.Search(ctx, io.Discard, s.svc, patterns, format.Plain)
	default:
		action = "list"
		result, err = tag.List(ctx, io.Discard, s.svc, format.Plain)
	}
	s.respondList(c, "http:"+action, result, err)
}

func (s *Server) getTag(c *gin.Context) {
	ref := c.Param("ref")
	t, err := s.svc.Lookup(c.Request.Context(), ref)

	log.Event("http:get_tag", "lookup").Author(author(c)).Tag(ref).Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t.ToJSON())
}

func (s *Server) mostUsed(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	result, err := tag.Top(c.Request.Context(), io.Discard, s.svc, limit, format.Plain)
	s.respondList(c, "http:most_used", result, err)
}

func (s *Server) leastUsed(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	result, err := tag.Bottom(c.Request.Context(), io.Discard, s.svc, limit, format.Plain)
	s.respondList(c, "http:least_used", result, err)
}

func (s *Server) forContext(c *gin.Context) {
	result, err := tag.ForContext(c.Request.Context(), io.Discard, s.svc, c.Param("name"), format.Plain)
	s.respondList(c, "http:context", result, err)
}

func (s *Server) category(c *gin.Context) {
	names := c.QueryArray("name")
	if len(names) == 0 {
		badRequest(c, "at least one name is required")
		return
	}
	enabled := true
	if v := c.Query("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "enabled must be true or false")
			return
		}
		enabled = b
	}
	result, err := tag.Category(c.Request.Context(), io.Discard, s.svc, names, enabled, format.Plain)
	s.respondList(c, "http:category", result, err)
}

func (s *Server) respondList(c *gin.Context, source string, result tag.ListResult, err error) {
	log.Event(source, "list").Author(author(c)).Detail("count", result.Count).Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// queryLimit parses ?limit=, reporting false after aborting on bad input.
// An absent limit is 0, which selects the configured default.
func queryLimit(c *gin.Context) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) rename(c *gin.Context) {
	ref := c.Param("ref")
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := tag.Rename(c.Request.Context(), io.Discard, s.svc, ref, req.Name, false)

	log.Event("http:rename", "rename").
		Author(author(c)).
		Tag(ref).
		Detail("name", req.Name).
		Detail("updated", result.Updated).
		Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) setEnabled(c *gin.Context) {
	ref := c.Param("ref")
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := tag.SetEnabled(c.Request.Context(), io.Discard, s.svc, ref, *req.Enabled)

	log.Event("http:set_enabled", result.Action).
		Author(author(c)).
		Tag(ref).
		Detail("updated", result.Updated).
		Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) deleteTag(c *gin.Context) {
	ref := c.Param("ref")
	result, err := tag.Remove(c.Request.Context(), io.Discard, s.svc, ref)

	log.Event("http:delete", "delete").Author(author(c)).Tag(ref).Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type attachRequest struct {
	Context string   `json:"context"`
	Names   []string `json:"names" binding:"required"`
}

func taggingFrom(c *gin.Context, tagContext string) store.Tagging {
	return store.Tagging{
		TaggableType: c.Param("type"),
		TaggableID:   c.Param("id"),
		Context:      tagContext,
	}
}

func (s *Server) attach(c *gin.Context) {
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t := taggingFrom(c, req.Context)

	result, err := tag.Attach(c.Request.Context(), io.Discard, s.svc, t, req.Names)
	s.respondAssociation(c, "attach", t, result, err)
}

// detach takes ?context= and repeated ?name= since DELETE bodies are not
// reliably forwarded by proxies.
func (s *Server) detach(c *gin.Context) {
	t := taggingFrom(c, c.Query("context"))
	names := c.QueryArray("name")

	result, err := tag.Detach(c.Request.Context(), io.Discard, s.svc, t, names)
	s.respondAssociation(c, "detach", t, result, err)
}

func (s *Server) respondAssociation(c *gin.Context, action string, t store.Tagging, result tag.AttachResult, err error) {
	log.Event("http:"+action, action).
		Author(author(c)).
		Detail("taggable", t.TaggableType+"/"+t.TaggableID).
		Detail("context", t.Context).
		Detail("changed", result.Changed).
		Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) tagsFor(c *gin.Context) {
	t := taggingFrom(c, c.Query("context"))
	result, err := tag.TagsFor(c.Request.Context(), io.Discard, s.svc, t, format.Plain)
	s.respondList(c, "http:tags_for", result, err)
}

func (s *Server) backfill(c *gin.Context) {
	result, err := tag.Backfill(c.Request.Context(), io.Discard, s.svc, nil)

	log.Event("http:backfill", "backfill").
		Author(author(c)).
		Detail("total", result.Total).
		Detail("updated", result.Updated).
		Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.svc.Stats(c.Request.Context())

	log.Event("http:stats", "stats").Author(author(c)).Write(err)

	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

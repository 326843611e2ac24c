package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/tagd/internal/catalog"
	"github.com/jpl-au/tagd/internal/httpapi"
	"github.com/jpl-au/tagd/internal/policy"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/tag"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	s, err := store.Open(store.MemoryPath, policy.Folded())
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))

	svc := catalog.FromStore(s, 0)
	t.Cleanup(func() { svc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpapi.New(svc, logger).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error httpapi.APIError `json:"error"`
	}](t, w)
	return body.Error.Code
}

func TestHealth(t *testing.T) {
	h := newHandler(t)
	w := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "folded", body["policy"])
}

func TestRequestIDPropagated(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}

func TestResolve(t *testing.T) {
	h := newHandler(t)

	w := do(t, h, http.MethodPost, "/v1/resolve", map[string]any{"names": []string{"Go", "GO", "sql"}, "category": "lang"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[tag.ListResult](t, w)
	require.Len(t, res.Tags, 3)
	assert.Equal(t, res.Tags[0].ID, res.Tags[1].ID)
	assert.Equal(t, "lang", res.Tags[2].Category)

	w = do(t, h, http.MethodPost, "/v1/resolve", map[string]any{"names": []string{""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, httpapi.CodeValidation, errorCode(t, w))

	w = do(t, h, http.MethodPost, "/v1/resolve", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "names required")

	w = do(t, h, http.MethodPost, "/v1/resolve_one", map[string]any{"name": "q"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sql", decode[store.TagJSON](t, w).Name)
}

func TestQueries(t *testing.T) {
	h := newHandler(t)
	do(t, h, http.MethodPost, "/v1/resolve", map[string]any{"names": []string{"golang", "rust"}, "category": "lang"})
	do(t, h, http.MethodPost, "/v1/resolve", map[string]any{"names": []string{"100%"}})

	w := do(t, h, http.MethodGet, "/v1/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[tag.ListResult](t, w).Count)

	w = do(t, h, http.MethodGet, "/v1/tags?name=GOLANG&name=none", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[tag.ListResult](t, w)
	require.Equal(t, 1, found.Count)
	assert.Equal(t, "golang", found.Tags[0].Name)

	w = do(t, h, http.MethodGet, "/v1/tags?q=%25", nil)
	require.Equal(t, http.StatusOK, w.Code)
	searched := decode[tag.ListResult](t, w)
	require.Equal(t, 1, searched.Count, "percent matches literally")
	assert.Equal(t, "100%", searched.Tags[0].Name)

	w = do(t, h, http.MethodGet, "/v1/tags/rust", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rust", decode[store.TagJSON](t, w).Name)

	w = do(t, h, http.MethodGet, "/v1/tags/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, httpapi.CodeNotFound, errorCode(t, w))

	w = do(t, h, http.MethodGet, "/v1/categories?name=lang", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[tag.ListResult](t, w).Count)

	w = do(t, h, http.MethodGet, "/v1/categories?name=lang&enabled=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[tag.ListResult](t, w).Count)

	w = do(t, h, http.MethodGet, "/v1/categories?name=lang&enabled=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/categories", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/most_used?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdates(t *testing.T) {
	h := newHandler(t)
	do(t, h, http.MethodPost, "/v1/resolve", map[string]any{"names": []string{"old", "taken"}})

	w := do(t, h, http.MethodPut, "/v1/tags/old/name", map[string]any{"name": "new"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := decode[tag.UpdateResult](t, w)
	assert.True(t, up.Updated)
	assert.Equal(t, "old", up.Previous)

	w = do(t, h, http.MethodPut, "/v1/tags/ghost/name", map[string]any{"name": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[tag.UpdateResult](t, w).Updated, "unknown tag is a no-op")

	w = do(t, h, http.MethodPut, "/v1/tags/new/name", map[string]any{"name": "TAKEN"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, httpapi.CodeConflict, errorCode(t, w))

	w = do(t, h, http.MethodPut, "/v1/tags/new/enabled", map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	up = decode[tag.UpdateResult](t, w)
	assert.True(t, up.Updated)
	assert.False(t, up.Tag.Enabled)

	w = do(t, h, http.MethodPut, "/v1/tags/new/enabled", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/v1/tags/new", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodDelete, "/v1/tags/new", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssociations(t *testing.T) {
	h := newHandler(t)

	w := do(t, h, http.MethodPost, "/v1/taggables/User/7/tags", map[string]any{"context": "skills", "names": []string{"go", "sql", "GO"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[tag.AttachResult](t, w).Changed)

	w = do(t, h, http.MethodGet, "/v1/taggables/User/7/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[tag.ListResult](t, w).Count)

	w = do(t, h, http.MethodGet, "/v1/contexts/skills/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[tag.ListResult](t, w).Count)

	w = do(t, h, http.MethodGet, "/v1/most_used?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[tag.ListResult](t, w).Count)

	w = do(t, h, http.MethodDelete, "/v1/taggables/User/7/tags?context=skills&name=go", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[tag.AttachResult](t, w).Changed)

	w = do(t, h, http.MethodGet, "/v1/least_used", nil)
	require.Equal(t, http.StatusOK, w.Code)
	least := decode[tag.ListResult](t, w)
	require.Len(t, least.Tags, 2)
	assert.Equal(t, "go", least.Tags[0].Name)

	w = do(t, h, http.MethodPost, "/v1/taggables/User/7/tags", map[string]any{"names": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "context required")
}

func TestBackfillAndStats(t *testing.T) {
	h := newHandler(t)
	do(t, h, http.MethodPost, "/v1/resolve", map[string]any{"names": []string{"a", "b"}})

	w := do(t, h, http.MethodPost, "/v1/backfill", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[store.Stats](t, w)
	assert.EqualValues(t, 2, st.Tags)
	assert.EqualValues(t, 0, st.MissingExternalIDs)
}

func TestServe_StopsOnCancel(t *testing.T) {
	s, err := store.Open(store.MemoryPath, policy.Folded())
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	svc := catalog.FromStore(s, 0)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := httpapi.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, srv.Serve(ctx, "127.0.0.1:0"))
}

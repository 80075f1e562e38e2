package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagefront/ticketing/internal/config"
)

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		LiveTTL:      5 * time.Second,
		CatalogTTL:   60 * time.Second,
		Prefix:       "browse",
		MaxBodyBytes: 1024,
	}
}

func browseContext(path string, params map[string]string, query string) echo.Context {
	e := echo.New()
	target := "/"
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for n, v := range params {
		names = append(names, n)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c
}

func TestBrowseTTLTiers(t *testing.T) {
	cfg := testCacheConfig()

	// Ledger-backed listings go stale fast and get the short window.
	assert.Equal(t, cfg.LiveTTL, browseTTL(cfg, "/v1/sessions/:id/availability"))
	assert.Equal(t, cfg.LiveTTL, browseTTL(cfg, "/v1/sessions/:id/categories"))
	assert.Equal(t, cfg.LiveTTL, browseTTL(cfg, "/v1/blocks/:id/seats"))

	// Catalogue metadata gets the long one.
	assert.Equal(t, cfg.CatalogTTL, browseTTL(cfg, "/v1/sessions"))
	assert.Equal(t, cfg.CatalogTTL, browseTTL(cfg, "/v1/sessions/:id"))
}

func TestBrowseKeyDependsOnRouteAndParams(t *testing.T) {
	cfg := testCacheConfig()

	a := browseKey(cfg, browseContext("/v1/sessions/:id", map[string]string{"id": "1"}, ""))
	same := browseKey(cfg, browseContext("/v1/sessions/:id", map[string]string{"id": "1"}, ""))
	otherParam := browseKey(cfg, browseContext("/v1/sessions/:id", map[string]string{"id": "2"}, ""))
	otherQuery := browseKey(cfg, browseContext("/v1/sessions/:id", map[string]string{"id": "1"}, "page=2"))

	assert.Equal(t, a, same)
	assert.NotEqual(t, a, otherParam)
	assert.NotEqual(t, a, otherQuery)
	assert.Contains(t, a, cfg.Prefix+":")
}

func TestBrowseCacheDisabledPassesThrough(t *testing.T) {
	cfg := testCacheConfig()
	cfg.Enabled = false

	called := false
	h := NewBrowseCache(cfg, nil)(func(c echo.Context) error {
		called = true
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})

	c := browseContext("/v1/sessions", nil, "")
	require.NoError(t, h(c))
	assert.True(t, called)
	assert.Empty(t, c.Response().Header().Get("X-Cache"))
}

func TestCaptureWriterDropsOversizedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 8}

	_, err := cw.Write([]byte("0123456789"))
	require.NoError(t, err)

	// The client still got the full body; only the cache copy is dropped.
	assert.True(t, cw.tooBig)
	assert.Zero(t, cw.buf.Len())
	assert.Equal(t, "0123456789", rec.Body.String())
}

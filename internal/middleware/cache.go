package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/stagefront/ticketing/internal/config"
)

// cachedResponse is the stored form of a browse response.  The browse
// surface only serves JSON, so the content type is the one header worth
// replaying.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter buffers the response body while forwarding it to the
// client, up to a size cap; oversized bodies pass through uncached.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int64
	tooBig bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.tooBig {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.tooBig = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// browseTTL picks the freshness window for a browse route.  Routes
// whose payload reflects the live ledger (availability summaries,
// category remainders, seat statuses) tolerate only seconds of
// staleness; catalogue metadata (session details, block listings)
// changes through back-office processes and can be cached longer.
func browseTTL(cfg config.CacheConfig, route string) time.Duration {
	switch {
	case strings.HasSuffix(route, "/availability"),
		strings.HasSuffix(route, "/categories"),
		strings.HasSuffix(route, "/seats"):
		return cfg.LiveTTL
	default:
		return cfg.CatalogTTL
	}
}

// browseKey builds the cache key from the matched route pattern and the
// bound path/query values: one entry per concrete session, block or
// seat listing.
func browseKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var sb strings.Builder
	sb.WriteString(c.Path())
	for _, name := range c.ParamNames() {
		sb.WriteByte('/')
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(c.Param(name))
	}
	if q := r.URL.RawQuery; q != "" {
		sb.WriteByte('?')
		sb.WriteString(q)
	}
	sum := sha1.Sum([]byte(sb.String()))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewBrowseCache caches successful GET responses of the public browse
// surface in Redis.  Hits replay the stored JSON with an X-Cache
// header; anything non-GET, non-200 or over the size cap flows through
// untouched.  The cache is advisory only: availability answers at
// reservation time always come from the ledger's conditional update,
// never from here.
func NewBrowseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := browseKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if err := json.Unmarshal(raw, &cached); err == nil {
					h := c.Response().Header()
					h.Set(echo.HeaderContentType, cached.ContentType)
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(cached.Status)
					_, _ = c.Response().Write(cached.Body)
					return nil
				}
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.tooBig {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{
				Status:      cw.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			// Store outside the request context so a client disconnect
			// does not abort the write.
			_ = rdb.SetEx(context.Background(), key, payload, browseTTL(cfg, c.Path())).Err()
			return nil
		}
	}
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/authors-api/internal/config"
)

// BrowseCache is a Redis-backed response cache for the public book browsing
// endpoints. Invalidation story: entries expire after the configured TTL
// and Purge is called after every book mutation, so readers see stale data
// for at most the window between a write and its purge. It never fronts the
// credential store or the revocation ledger.
type BrowseCache struct {
	rdb     *redis.Client
	cfg     config.CacheConfig
	enabled bool
}

// NewBrowseCache wires the cache against a Redis client. A nil client or a
// disabled config yields a cache whose middleware is a pass-through.
func NewBrowseCache(cfg config.CacheConfig, rdb *redis.Client) *BrowseCache {
	return &BrowseCache{rdb: rdb, cfg: cfg, enabled: cfg.Enabled && rdb != nil}
}

// bodyCapture mirrors the response body into a buffer while writing through
// to the client, so a miss can be stored after the handler runs.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	if w.limit <= 0 || w.buf.Len()+len(b) <= w.limit {
		w.buf.Write(b)
	} else {
		w.buf.Reset() // over budget, give up on caching this response
		w.limit = -1
	}
	return w.ResponseWriter.Write(b)
}

func (bc *BrowseCache) key(c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", bc.cfg.Prefix, sum)
}

// Middleware serves cached 200 responses for GET requests and stores fresh
// ones on miss.
func (bc *BrowseCache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !bc.enabled || c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := bc.key(c)

			if body, err := bc.rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: bc.cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 && cw.limit >= 0 {
				_ = bc.rdb.SetEx(context.Background(), key, cw.buf.Bytes(), bc.cfg.TTL).Err()
			}
			return nil
		}
	}
}

// Purge drops every cached browse response. Book handlers call it after a
// create, update or delete commits; failures only delay freshness until the
// TTL fires, so the error is the caller's to ignore.
func (bc *BrowseCache) Purge(ctx context.Context) error {
	if !bc.enabled {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := bc.rdb.Scan(ctx, cursor, bc.cfg.Prefix+":*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := bc.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

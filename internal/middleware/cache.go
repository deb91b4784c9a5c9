package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/product-catalog-api/internal/config"
)

const defaultCacheTTL = 5 * time.Minute

// cachedResponse is the JSON document stored per cache key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body,omitempty"`
}

// bodyRecorder tees the response body into buf until it grows past limit,
// at which point the copy is dropped and overflow is set.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// perRequestHeader reports headers that describe the request that filled the
// cache rather than the resource, and so must not be replayed on a hit.
func perRequestHeader(name string) bool {
	name = http.CanonicalHeaderKey(name)
	switch name {
	case "X-Cache", "Retry-After", echo.HeaderContentLength, echo.HeaderXRequestID:
		return true
	}
	return strings.HasPrefix(name, "X-Ratelimit-")
}

func storableHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if !perRequestHeader(k) {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// cacheKeyFrom hashes the concrete request path, never the route pattern, so
// /categorias/1 and /categorias/2 get separate entries.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := composeKey(cfg.KeyStrategy, "path_query", map[string]string{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
	})
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

// replay writes a stored response. Stored headers replace any the current
// request chain already set under the same name.
func replay(c echo.Context, cached cachedResponse) error {
	h := c.Response().Header()
	for k, v := range cached.Header {
		h[k] = v
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cached.Status)
	if len(cached.Body) > 0 {
		_, err := c.Response().Write(cached.Body)
		return err
	}
	return nil
}

// NewRedisCache caches 200 responses of the configured methods and marks
// every response it handles with X-Cache: HIT|MISS.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			raw, err := rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				var cached cachedResponse
				if jerr := json.Unmarshal(raw, &cached); jerr == nil && cached.Status != 0 {
					return replay(c, cached)
				}
				log.Warn("cache entry unreadable", zap.String("key", key))
			case !errors.Is(err, redis.Nil):
				log.Warn("cache get", zap.String("key", key), zap.Error(err))
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			doc, err := json.Marshal(cachedResponse{
				Status: rec.status,
				Header: storableHeader(c.Response().Header()),
				Body:   rec.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, doc, ttl).Err(); err != nil {
				log.Warn("cache set", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// CachePurger removes every cached response under a prefix. A nil client
// makes Purge a no-op.
type CachePurger struct {
	rdb    *redis.Client
	prefix string
}

func NewCachePurger(rdb *redis.Client, prefix string) *CachePurger {
	return &CachePurger{rdb: rdb, prefix: prefix}
}

// Purge walks prefix:* with SCAN and deletes each batch as it goes.
func (p *CachePurger) Purge(ctx context.Context) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := p.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(batch) > 0 {
		if err := p.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("delete cache keys: %w", err)
		}
	}
	return nil
}

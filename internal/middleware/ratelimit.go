package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/product-catalog-api/internal/config"
)

// takeToken refills a bucket continuously at ARGV[3] tokens per ARGV[4] ms,
// capped at ARGV[2], then spends one token if a whole one is available.
// Reply: {allowed (0|1), whole tokens left, ms until the next token}.
var takeToken = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local per_ms = tonumber(ARGV[3]) / tonumber(ARGV[4])

local level = tonumber(redis.call('HGET', KEYS[1], 'level'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if level == nil or stamp == nil then
	level = capacity
	stamp = now
end
level = math.min(capacity, level + math.max(0, now - stamp) * per_ms)

local allowed = 0
local wait_ms = 0
if level >= 1 then
	allowed = 1
	level = level - 1
else
	wait_ms = math.ceil((1 - level) / per_ms)
end

redis.call('HSET', KEYS[1], 'level', level, 'stamp', now)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {allowed, math.floor(level), wait_ms}
`)

var errBucketReply = errors.New("unexpected token bucket reply")

type bucketState struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

func spend(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucketState, error) {
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}
	refill := max(cfg.RefillTokens, 1)
	ttl := max(int64(cfg.TTL/time.Second), 1)

	reply, err := takeToken.Run(ctx, rdb, []string{key},
		time.Now().UnixMilli(), cfg.Capacity, refill, interval.Milliseconds(), ttl,
	).Int64Slice()
	if err != nil {
		return bucketState{}, err
	}
	if len(reply) != 3 {
		return bucketState{}, errBucketReply
	}
	return bucketState{
		allowed:   reply[0] == 1,
		remaining: reply[1],
		wait:      time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// rateKey builds "<prefix>:<label>:<value>..." from the configured strategy.
// The user component is only meaningful once JWTAuth has run on the request.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := composeKey(cfg.KeyStrategy, "ip_user_route", map[string]string{
		"ip":    ip,
		"user":  userKey(c),
		"route": c.Request().Method + " " + c.Path(),
	})
	return cfg.Prefix + ":" + strings.Join(parts, ":")
}

// NewTokenBucket rate limits requests per key. Mount it after JWTAuth for
// per-user limits. Redis failures let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			st, err := spend(c.Request().Context(), rdb, cfg, key)
			if err != nil {
				log.Warn("rate limit unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if st.allowed {
				return next(c)
			}

			secs := int(math.Ceil(st.wait.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.Info("rate limited", zap.String("key", key), zap.Duration("wait", st.wait))
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

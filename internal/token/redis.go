package token

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocations keeps revoked token ids as expiring Redis keys.
type RedisRevocations struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRevocations stores keys as "<prefix>:<jti>".
func NewRedisRevocations(rdb *redis.Client, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocations{rdb: rdb, prefix: prefix, now: time.Now}
}

// Revoke marks jti revoked until exp. Already expired tokens are no-ops.
func (r *RedisRevocations) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, r.key(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti has been revoked and not yet aged out.
func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, r.key(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisRevocations) key(jti string) string { return r.prefix + ":" + jti }

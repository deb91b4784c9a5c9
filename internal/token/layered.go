package token

import (
	"context"
	"time"
)

// LayeredRevocations writes every revocation to a durable store and mirrors
// it into a cache. Reads consult the cache first and fall through to the
// durable store on a miss or any cache error, so a cold or unreachable
// cache never turns a revoked token valid again.
type LayeredRevocations struct {
	durable RevocationStore
	cache   RevocationStore
}

var _ RevocationStore = (*LayeredRevocations)(nil)

// NewLayeredRevocations returns durable unchanged when cache is nil.
func NewLayeredRevocations(durable, cache RevocationStore) RevocationStore {
	if cache == nil {
		return durable
	}
	return &LayeredRevocations{durable: durable, cache: cache}
}

// Revoke fails only when the durable write fails. The cache copy is best effort.
func (l *LayeredRevocations) Revoke(ctx context.Context, jti string, exp time.Time) error {
	if err := l.durable.Revoke(ctx, jti, exp); err != nil {
		return err
	}
	_ = l.cache.Revoke(ctx, jti, exp)
	return nil
}

func (l *LayeredRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if hit, err := l.cache.IsRevoked(ctx, jti); err == nil && hit {
		return true, nil
	}
	return l.durable.IsRevoked(ctx, jti)
}

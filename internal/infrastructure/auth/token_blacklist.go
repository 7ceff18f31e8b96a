package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/estudiomd/backoffice/internal/infrastructure/cache"
)

// TokenBlacklist invalidates tokens before they expire, on logout and on
// refresh token rotation
type TokenBlacklist interface {
	// Revoke blacklists jti for ttl, which should be the token's remaining lifetime
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// CacheTokenBlacklist keeps revoked token ids in a cache. With the redis
// backend revocations are shared by every instance.
type CacheTokenBlacklist struct {
	store cache.Cache
}

// NewCacheTokenBlacklist creates a blacklist over store
func NewCacheTokenBlacklist(store cache.Cache) *CacheTokenBlacklist {
	return &CacheTokenBlacklist{store: store}
}

func jtiKey(jti string) string {
	return "token:revoked:" + jti
}

// Revoke stores jti until ttl elapses. Non-positive ttls are ignored because
// the token is already expired.
func (b *CacheTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := b.store.Set(ctx, jtiKey(jti), true, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked and has not yet expired
func (b *CacheTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	found, err := b.store.Get(ctx, jtiKey(jti), &revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return found && revoked, nil
}

var _ TokenBlacklist = (*CacheTokenBlacklist)(nil)

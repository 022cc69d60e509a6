package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// cachedRevocations mirrors revocations into Redis keys that expire with
// the token.  MySQL stays authoritative: a Redis miss or error always
// falls through to the wrapped store.
type cachedRevocations struct {
	next   RevocationStore
	rdb    *redis.Client
	logger *slog.Logger
}

// NewCachedRevocations decorates store with a Redis mirror.  With a nil
// client the store is returned unchanged.
func NewCachedRevocations(store RevocationStore, rdb *redis.Client, logger *slog.Logger) RevocationStore {
	if rdb == nil {
		return store
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedRevocations{next: store, rdb: rdb, logger: logger}
}

func (c *cachedRevocations) Revoke(ctx context.Context, tokenHash string, exp time.Time) error {
	if err := c.next.Revoke(ctx, tokenHash, exp); err != nil {
		return err
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	if err := c.rdb.Set(ctx, revokedKeyPrefix+tokenHash, "1", ttl).Err(); err != nil {
		c.logger.Warn("revocation mirror: set failed", slog.String("error", err.Error()))
	}
	return nil
}

func (c *cachedRevocations) IsRevoked(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	n, err := c.rdb.Exists(ctx, revokedKeyPrefix+tokenHash).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil {
		c.logger.Warn("revocation mirror: lookup failed", slog.String("error", err.Error()))
	}
	return c.next.IsRevoked(ctx, tokenHash, now)
}

// PurgeExpired only touches the database; mirrored keys carry their own TTL.
func (c *cachedRevocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return c.next.PurgeExpired(ctx, now)
}

// File: internal/infra/redis/routing_cache.go
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/routing"
)

var _ routing.ConfigCache = (*RoutingCache)(nil)

// RoutingCache is the read-through cache in front of the config store for
// routing dictionaries and default connector lists. A cache miss or a
// redis failure is never an error for the caller; the store stays
// authoritative.
type RoutingCache struct {
	client RedisClient
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewRoutingCache(client RedisClient, ttl time.Duration, logger *zerolog.Logger) *RoutingCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RoutingCache{client: client, ttl: ttl, log: logger}
}

func (c *RoutingCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("routing cache read failed")
		}
		return "", false
	}
	return value, true
}

func (c *RoutingCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("routing cache write failed")
	}
}

func (c *RoutingCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("routing cache invalidation failed")
	}
}

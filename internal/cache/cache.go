// Package cache implements an optional Redis-backed read cache for the admin
// API list endpoints. List responses are cached per entity type and
// invalidated whenever that entity is written. When the cache is disabled a
// nil *Cache is returned and every method is a no-op, so callers never need
// to branch on configuration.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/application-catalog/application-catalog/internal/config"
	"github.com/application-catalog/application-catalog/internal/telemetry"
)

// Cache wraps a Redis client with list-cache semantics
type Cache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// New creates a Cache from configuration. Returns (nil, nil) when the cache
// is disabled; a nil *Cache is safe to use and behaves as a permanent miss.
func New(cfg config.CacheConfig) (*Cache, error) {
	if !cfg.Enabled || cfg.RedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "catalog"
	}

	return &Cache{
		client:    redis.NewClient(opt),
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}, nil
}

// Enabled reports whether a Redis backend is configured
func (c *Cache) Enabled() bool {
	return c != nil
}

// Client exposes the underlying Redis client so other components (the Redis
// rate limiter) can share the connection pool. Nil when the cache is disabled.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// listKey builds the cache key for an entity list, e.g. "catalog:list:applications"
func (c *Cache) listKey(entity string) string {
	return fmt.Sprintf("%s:list:%s", c.keyPrefix, entity)
}

// GetList returns the cached list payload for an entity type, or (nil, false)
// on a miss. A disabled cache always misses.
func (c *Cache) GetList(ctx context.Context, entity string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	val, err := c.client.Get(ctx, c.listKey(entity)).Bytes()
	if err != nil {
		// redis.Nil is an ordinary miss; anything else degrades to a miss
		// so a cache outage never breaks reads.
		telemetry.CacheMissesTotal.Inc()
		return nil, false
	}

	telemetry.CacheHitsTotal.Inc()
	return val, true
}

// SetList stores a list payload for an entity type with the configured TTL
func (c *Cache) SetList(ctx context.Context, entity string, payload []byte) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, c.listKey(entity), payload, c.ttl).Err()
}

// Invalidate drops the cached lists for the given entity types. Called after
// every write so reads never serve stale hierarchies.
func (c *Cache) Invalidate(ctx context.Context, entities ...string) error {
	if c == nil || len(entities) == 0 {
		return nil
	}

	keys := make([]string, len(entities))
	for i, entity := range entities {
		keys[i] = c.listKey(entity)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping verifies the Redis connection for readiness checks
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis client
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

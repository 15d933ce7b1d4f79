// Package rediscache caches nutrient lookups in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"macrochef/internal/logger"
	"macrochef/internal/nutrition"
)

// DefaultTTL is how long a lookup result is kept.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "macrochef:per100g:"

// Lookup is the nutrient lookup being cached.
type Lookup interface {
	Per100g(ctx context.Context, name string) (nutrition.Macros, bool, error)
}

// Cmdable is the part of the Redis client the cache uses.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache wraps a Lookup with a Redis read-through cache. Redis failures are
// logged and the lookup proceeds uncached.
type Cache struct {
	next Lookup
	rdb  Cmdable
	ttl  time.Duration
}

// New returns a cache in front of next.
func New(next Lookup, rdb Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

type entry struct {
	Found  bool             `json:"found"`
	Macros nutrition.Macros `json:"macros"`
}

// Per100g returns the cached result for name or asks the wrapped lookup.
// Misses are cached too; errors are not.
func (c *Cache) Per100g(ctx context.Context, name string) (nutrition.Macros, bool, error) {
	key := Key(name)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var e entry
		if err := json.Unmarshal(data, &e); err == nil {
			return e.Macros, e.Found, nil
		}
		logger.Warn("discarding malformed cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
	}

	m, found, err := c.next.Per100g(ctx, name)
	if err != nil {
		return m, found, err
	}

	data, err = json.Marshal(entry{Found: found, Macros: m})
	if err != nil {
		return m, found, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
	return m, found, nil
}

// Key is the Redis key for an ingredient name.
func Key(name string) string {
	return keyPrefix + strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NewClient parses a redis:// URL and checks the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultScanBatchSize = 100

// RedisLookupCache stores JSON-encoded lookup results in Redis
type RedisLookupCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	logger     *zap.Logger
}

// RedisLookupCacheOption is a functional option for configuring the cache
type RedisLookupCacheOption func(*RedisLookupCache)

// WithKeyPrefix namespaces every key
func WithKeyPrefix(prefix string) RedisLookupCacheOption {
	return func(c *RedisLookupCache) {
		c.prefix = prefix
	}
}

// WithDefaultTTL sets the TTL used when Set is called with zero
func WithDefaultTTL(ttl time.Duration) RedisLookupCacheOption {
	return func(c *RedisLookupCache) {
		c.defaultTTL = ttl
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisLookupCacheOption {
	return func(c *RedisLookupCache) {
		c.logger = logger
	}
}

// NewRedisLookupCache creates a cache over a shared client.
// The caller keeps ownership of the client.
func NewRedisLookupCache(client *redis.Client, opts ...RedisLookupCacheOption) *RedisLookupCache {
	c := &RedisLookupCache{
		client:     client,
		prefix:     "lookup:",
		defaultTTL: time.Minute,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get decodes the cached value for key into dest. A miss returns false with no error.
func (c *RedisLookupCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	cacheKey := c.prefix + key

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss", zap.String("key", key))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, cacheKey)
		return false, nil
	}
	c.logger.Debug("Cache hit", zap.String("key", key))
	return true, nil
}

// Set stores value under key. A zero ttl uses the default.
func (c *RedisLookupCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix
func (c *RedisLookupCache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := c.prefix + prefix + "*"
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("Invalidated cache prefix", zap.String("prefix", prefix), zap.Int("keys", deleted))
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (c *RedisLookupCache) Close() error { return nil }

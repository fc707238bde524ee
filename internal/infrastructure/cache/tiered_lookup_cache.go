package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TieredLookupCache reads through a process-local L1 in front of Redis (L2).
// Invalidations are applied to both tiers and broadcast so other instances
// drop their L1 copies.
type TieredLookupCache struct {
	l1          *InMemoryLookupCache
	l2          *RedisLookupCache
	invalidator *RedisCacheInvalidator
	l1TTL       time.Duration
	logger      *zap.Logger

	l2Hits   atomic.Int64
	l2Misses atomic.Int64
}

// NewTieredLookupCache creates a tiered cache; invalidator may be nil for a single instance
func NewTieredLookupCache(l1 *InMemoryLookupCache, l2 *RedisLookupCache, invalidator *RedisCacheInvalidator, l1TTL time.Duration, logger *zap.Logger) *TieredLookupCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if l1TTL <= 0 {
		l1TTL = 10 * time.Second
	}
	return &TieredLookupCache{
		l1:          l1,
		l2:          l2,
		invalidator: invalidator,
		l1TTL:       l1TTL,
		logger:      logger,
	}
}

// StartInvalidationSubscription listens for invalidations from other instances.
// It blocks; run it in a goroutine.
func (c *TieredLookupCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, func(msg InvalidationMessage) {
		if err := c.l1.DeletePrefix(ctx, msg.Prefix); err != nil {
			c.logger.Error("Failed to apply remote invalidation", zap.String("prefix", msg.Prefix), zap.Error(err))
		}
	})
}

// Get checks L1, then L2. An L2 hit is copied into L1.
func (c *TieredLookupCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if found, err := c.l1.Get(ctx, key, dest); err == nil && found {
		return true, nil
	}

	found, err := c.l2.Get(ctx, key, dest)
	if err != nil {
		return false, err
	}
	if !found {
		c.l2Misses.Add(1)
		return false, nil
	}
	c.l2Hits.Add(1)
	if err := c.l1.Set(ctx, key, dest, c.l1TTL); err != nil {
		c.logger.Debug("Failed to populate L1", zap.String("key", key), zap.Error(err))
	}
	return true, nil
}

// Set writes both tiers
func (c *TieredLookupCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	return c.l1.Set(ctx, key, value, l1TTL)
}

// DeletePrefix invalidates both tiers and notifies other instances
func (c *TieredLookupCache) DeletePrefix(ctx context.Context, prefix string) error {
	if err := c.l1.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	if err := c.l2.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, prefix); err != nil {
			c.logger.Warn("Failed to broadcast invalidation", zap.String("prefix", prefix), zap.Error(err))
		}
	}
	return nil
}

// Stats returns L2 hit and miss counts
func (c *TieredLookupCache) Stats() (l2Hits, l2Misses int64) {
	return c.l2Hits.Load(), c.l2Misses.Load()
}

// Close stops the subscription and the L1 sweep
func (c *TieredLookupCache) Close() error {
	if c.invalidator != nil {
		_ = c.invalidator.Close()
	}
	return c.l1.Close()
}

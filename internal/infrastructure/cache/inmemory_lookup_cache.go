package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultCleanupInterval = 30 * time.Second

type lookupEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e lookupEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryLookupCache is a process-local lookup cache. Values are stored
// JSON-encoded so callers get the same copy semantics as with Redis.
type InMemoryLookupCache struct {
	mu         sync.RWMutex
	entries    map[string]lookupEntry
	defaultTTL time.Duration
	stopCh     chan struct{}
	closeOnce  sync.Once

	hits   atomic.Int64
	misses atomic.Int64
}

// NewInMemoryLookupCache creates the cache and starts the expiry sweep
func NewInMemoryLookupCache(defaultTTL time.Duration) *InMemoryLookupCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	c := &InMemoryLookupCache{
		entries:    make(map[string]lookupEntry),
		defaultTTL: defaultTTL,
		stopCh:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get decodes the cached value for key into dest
func (c *InMemoryLookupCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.isExpired(time.Now()) {
		c.misses.Add(1)
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	c.hits.Add(1)
	return true, nil
}

// Set stores value under key
func (c *InMemoryLookupCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	c.mu.Lock()
	c.entries[key] = lookupEntry{data: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// DeletePrefix removes every key starting with prefix
func (c *InMemoryLookupCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Stats returns hit and miss counts
func (c *InMemoryLookupCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the number of stored entries, expired ones included until swept
func (c *InMemoryLookupCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the expiry sweep. Safe to call multiple times.
func (c *InMemoryLookupCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *InMemoryLookupCache) cleanupLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemoryLookupCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
		}
	}
}

package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys of already-processed requests
type IdempotencyStore interface {
	// MarkProcessed atomically claims key for ttl.
	// Returns false when the key was already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release frees a claimed key so a failed request can be retried
	Release(ctx context.Context, key string) error

	Close() error
}

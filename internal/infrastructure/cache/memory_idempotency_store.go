package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/invoicing/internal/domain/shared"
)

const memorySweepInterval = 5 * time.Minute

// MemoryIdempotencyStore keeps claims in process memory. Expired claims are
// swept lazily on write, at most once per memorySweepInterval.
type MemoryIdempotencyStore struct {
	mu        sync.Mutex
	expiry    map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

var _ shared.IdempotencyStore = (*MemoryIdempotencyStore)(nil)

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{expiry: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweep(now)
		s.nextSweep = now.Add(memorySweepInterval)
	}
	if until, held := s.expiry[key]; held && now.Before(until) {
		return false, nil
	}
	s.expiry[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, held := s.expiry[key]
	return held && s.now().Before(until), nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expiry, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryIdempotencyStore) Close() error { return nil }

// Len counts stored claims, expired ones included until the next sweep.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}

func (s *MemoryIdempotencyStore) sweep(now time.Time) {
	for key, until := range s.expiry {
		if !now.Before(until) {
			delete(s.expiry, key)
		}
	}
}

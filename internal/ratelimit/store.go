package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store holds window counters.
type Store interface {
	// Increment adds one to key and returns the new count. A new key expires
	// after ttl.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// MemoryStore is an in-process Store. Expired counters are swept lazily.
type MemoryStore struct {
	mu        sync.Mutex
	counters  map[string]*memoryCounter
	lastSweep time.Time
	now       func() time.Time
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// sweepInterval bounds how often Increment scans for expired counters.
const sweepInterval = time.Minute

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

// Increment implements Store.
func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}

	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		c = &memoryCounter{expiresAt: now.Add(ttl)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, c := range s.counters {
		if !now.Before(c.expiresAt) {
			delete(s.counters, k)
		}
	}
	s.lastSweep = now
}

// Len reports the number of live and not yet swept counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

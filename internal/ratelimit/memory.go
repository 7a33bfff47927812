package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps bucket counts in process memory. Only buckets that have
// not expired are retained.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]memoryBucket
	now     func() time.Time
}

type memoryBucket struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]memoryBucket), now: time.Now}
}

func (m *MemoryStore) Count(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || !m.now().Before(b.expiresAt) {
		return 0, nil
	}
	return b.count, nil
}

func (m *MemoryStore) TakeIfBelow(_ context.Context, key string, ceiling int, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictExpired(now)

	b, ok := m.buckets[key]
	if !ok {
		b = memoryBucket{expiresAt: now.Add(ttl)}
	}
	if b.count >= ceiling {
		return false, nil
	}
	b.count++
	m.buckets[key] = b
	return true, nil
}

func (m *MemoryStore) evictExpired(now time.Time) {
	for k, b := range m.buckets {
		if !now.Before(b.expiresAt) {
			delete(m.buckets, k)
		}
	}
}

package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
)

// MemoryStore is an in-process store for single-instance deployments and tests.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]domain.IdempotencyRecord
	reserved map[string]time.Time
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]domain.IdempotencyRecord),
		reserved: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(rec.ExpiresAt) {
		delete(s.records, key)
		return nil, false, nil
	}
	return rec.Result, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[key] = domain.IdempotencyRecord{Key: key, Result: stored, ExpiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if until, ok := s.reserved[key]; ok && now.Before(until) {
		return false, nil
	}
	s.reserved[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reserved, key)
	return nil
}

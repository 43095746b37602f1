// Package idempotency implements the key to result cache that guards
// side-effecting jobs against running twice.
package idempotency

import (
	"context"
	"time"

	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
)

// Store is an IdempotencyStore that can also hold a short reservation while a
// job is in flight, so two workers never run the same key concurrently.
type Store interface {
	portssvc.IdempotencyStore
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

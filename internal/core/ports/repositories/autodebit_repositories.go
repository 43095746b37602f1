package repositories

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
)

// AutoDebitReader defines read operations for auto-debit configs.
type AutoDebitReader interface {
	FindAutoDebitByID(ctx context.Context, configID string) (*domain.AutoDebitConfig, error)
	FindAutoDebitByMember(ctx context.Context, chamaID, memberID string) (*domain.AutoDebitConfig, error)
}

// AutoDebitWriter defines write operations for auto-debit configs.
type AutoDebitWriter interface {
	// UpsertAutoDebit creates or replaces the member's config for the chama.
	UpsertAutoDebit(ctx context.Context, cfg domain.AutoDebitConfig) error
	// ClaimDueAutoDebits leases enabled configs due at or before now whose
	// cooldown has elapsed, oldest first, using FOR UPDATE SKIP LOCKED.
	ClaimDueAutoDebits(ctx context.Context, now time.Time, cooldown, lease time.Duration, limit int) ([]domain.AutoDebitConfig, error)
	// SaveExecutionResult persists the outcome fields and releases the lease.
	SaveExecutionResult(ctx context.Context, cfg domain.AutoDebitConfig) error
}

// AutoDebitRepositoryFacade combines all auto-debit repository interfaces.
type AutoDebitRepositoryFacade interface {
	AutoDebitReader
	AutoDebitWriter
}

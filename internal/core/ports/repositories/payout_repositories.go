package repositories

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// PayoutReader defines read operations for payouts.
type PayoutReader interface {
	FindPayoutByID(ctx context.Context, payoutID string) (*domain.Payout, error)
	// ListPayouts returns one page of payouts matching filter, newest first, and the total match count.
	ListPayouts(ctx context.Context, filter domain.PayoutFilter, limit, offset int) ([]domain.Payout, int, error)
	ListDistributions(ctx context.Context, payoutID string) ([]domain.PayoutDistribution, error)
}

// PayoutClaimer leases batches of payouts to a sweep using FOR UPDATE SKIP LOCKED.
type PayoutClaimer interface {
	// ClaimDuePayouts leases pending payouts scheduled at or before now, and
	// processing payouts untouched for longer than lease.
	ClaimDuePayouts(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.Payout, error)
	// ClaimRetryablePayouts leases failed payouts under maxRetries whose last failure is older than cooldown.
	ClaimRetryablePayouts(ctx context.Context, now time.Time, cooldown time.Duration, maxRetries int, lease time.Duration, limit int) ([]domain.Payout, error)
}

// PayoutWriter defines transactional write operations for payouts.
type PayoutWriter interface {
	// ExistsActivePayoutForCycleInTx reports whether a non-cancelled payout exists for the cycle.
	ExistsActivePayoutForCycleInTx(ctx context.Context, tx pgx.Tx, cycleID string) (bool, error)
	// CreatePayoutInTx inserts the payout and its distributions. A concurrent
	// insert for the same cycle surfaces as apperrors.ErrDuplicatePayout.
	CreatePayoutInTx(ctx context.Context, tx pgx.Tx, payout domain.Payout, distributions []domain.PayoutDistribution) error
	LockPayoutInTx(ctx context.Context, tx pgx.Tx, payoutID string) (*domain.Payout, error)
	// UpdatePayoutInTx persists the payout and releases any sweep lease on it.
	UpdatePayoutInTx(ctx context.Context, tx pgx.Tx, payout domain.Payout) error
}

// PayoutRepositoryFacade combines all payout repository interfaces.
type PayoutRepositoryFacade interface {
	PayoutReader
	PayoutClaimer
	PayoutWriter
}

// PayoutRepositoryWithTx extends PayoutRepositoryFacade with transaction capabilities.
type PayoutRepositoryWithTx interface {
	PayoutRepositoryFacade
	TransactionManager
}

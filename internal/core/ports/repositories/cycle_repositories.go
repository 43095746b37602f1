package repositories

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CycleReader defines read operations for cycles and contributions.
type CycleReader interface {
	FindCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, error)
	// FindActiveCycleByChama returns the chama's open cycle or apperrors.ErrNotFound.
	FindActiveCycleByChama(ctx context.Context, chamaID string) (*domain.ContributionCycle, error)
	ListContributions(ctx context.Context, cycleID string) ([]domain.Contribution, error)
	HasCompletedContribution(ctx context.Context, cycleID, memberID string) (bool, error)
	// ListCyclesAwaitingReminders returns active cycles due before cutoff, oldest
	// first, that still have an active unpaid member without the reminder due at
	// now: overdue once now reaches the due date, due-soon before that.
	ListCyclesAwaitingReminders(ctx context.Context, now, cutoff time.Time, limit int) ([]domain.ContributionCycle, error)
	// ListUnpaidMembers returns active members with no completed contribution for the cycle.
	ListUnpaidMembers(ctx context.Context, cycleID string) ([]domain.Member, error)
}

// CycleWriter defines transactional write operations for cycles and contributions.
type CycleWriter interface {
	CreateCycleInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) error
	LockCycleInTx(ctx context.Context, tx pgx.Tx, cycleID string) (*domain.ContributionCycle, error)
	UpdateCycleInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) error
	// AddCollectedInTx increments collected_amount atomically.
	AddCollectedInTx(ctx context.Context, tx pgx.Tx, cycleID string, amount decimal.Decimal) error
	// SaveContributionInTx inserts a contribution. A second completed contribution
	// by the same member surfaces as apperrors.ErrAlreadyContributed.
	SaveContributionInTx(ctx context.Context, tx pgx.Tx, contribution domain.Contribution) error
	// CountUnpaidInTx returns active members without a completed contribution and the active member total.
	CountUnpaidInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) (unpaid int, total int, err error)
	ListCompletedContributionsInTx(ctx context.Context, tx pgx.Tx, cycleID string) ([]domain.Contribution, error)
}

// CycleRepositoryFacade combines all cycle repository interfaces.
type CycleRepositoryFacade interface {
	CycleReader
	CycleWriter
}

// CycleRepositoryWithTx extends CycleRepositoryFacade with transaction capabilities.
type CycleRepositoryWithTx interface {
	CycleRepositoryFacade
	TransactionManager
}

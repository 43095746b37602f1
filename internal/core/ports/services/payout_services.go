package services

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
)

// PayoutReaderSvc defines read operations on payouts.
type PayoutReaderSvc interface {
	GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error)
	GetPayoutHistory(ctx context.Context, filter domain.PayoutFilter, page, limit int) (*domain.PayoutPage, error)
}

// PayoutWriterSvc owns the payout state machine.
type PayoutWriterSvc interface {
	SchedulePayout(ctx context.Context, req dto.SchedulePayoutRequest, actorID string) (*domain.Payout, error)
	ExecutePayout(ctx context.Context, payoutID string) (*domain.Payout, error)
	CancelPayout(ctx context.Context, payoutID, reason, actorID string) (*domain.Payout, error)
	// RetryFailedPayout resets a failed payout to pending and executes it again.
	// Unless manual is set, the circuit breaker rejects payouts that used up their retries.
	RetryFailedPayout(ctx context.Context, payoutID string, manual bool) (*domain.Payout, error)
	// TriggerCyclePayout schedules the completed cycle's payout to its rotation recipient and executes it.
	TriggerCyclePayout(ctx context.Context, cycleID string) (*domain.Payout, error)
}

// PayoutSweepSvc exposes the batches worked by the scheduler.
type PayoutSweepSvc interface {
	ClaimDuePayouts(ctx context.Context, now time.Time, limit int) ([]domain.Payout, error)
	ClaimRetryablePayouts(ctx context.Context, now time.Time, limit int) ([]domain.Payout, error)
}

// PayoutSvcFacade combines all payout service interfaces.
type PayoutSvcFacade interface {
	PayoutReaderSvc
	PayoutWriterSvc
	PayoutSweepSvc
}

package handlers_test

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock RotationService ---
type MockRotationService struct {
	mock.Mock
}

var _ portssvc.RotationSvcFacade = (*MockRotationService)(nil)

func (m *MockRotationService) GetRotationStatus(ctx context.Context, chamaID string) (*domain.RotationOverview, error) {
	args := m.Called(ctx, chamaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RotationOverview), args.Error(1)
}

func (m *MockRotationService) GetNextRecipient(ctx context.Context, rotationOrderID string) (*domain.RotationPosition, error) {
	args := m.Called(ctx, rotationOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RotationPosition), args.Error(1)
}

func (m *MockRotationService) CreateRotation(ctx context.Context, req dto.CreateRotationRequest, actorID string) (*domain.RotationOverview, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RotationOverview), args.Error(1)
}

func (m *MockRotationService) SkipPosition(ctx context.Context, positionID string, reason *string, actorID string) (*domain.RotationPosition, error) {
	args := m.Called(ctx, positionID, reason, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RotationPosition), args.Error(1)
}

func (m *MockRotationService) SwapPositions(ctx context.Context, positionA, positionB string, reason *string, actorID string) ([]domain.RotationPosition, error) {
	args := m.Called(ctx, positionA, positionB, reason, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RotationPosition), args.Error(1)
}

func (m *MockRotationService) AdvanceRotationInTx(ctx context.Context, tx pgx.Tx, positionID string, paidCycle domain.ContributionCycle, now time.Time) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, tx, positionID, paidCycle, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

// --- Mock PayoutService ---
type MockPayoutService struct {
	mock.Mock
}

var _ portssvc.PayoutSvcFacade = (*MockPayoutService)(nil)

func (m *MockPayoutService) payout(args mock.Arguments) (*domain.Payout, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

func (m *MockPayoutService) GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	return m.payout(m.Called(ctx, payoutID))
}

func (m *MockPayoutService) GetPayoutHistory(ctx context.Context, filter domain.PayoutFilter, page, limit int) (*domain.PayoutPage, error) {
	args := m.Called(ctx, filter, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutPage), args.Error(1)
}

func (m *MockPayoutService) SchedulePayout(ctx context.Context, req dto.SchedulePayoutRequest, actorID string) (*domain.Payout, error) {
	return m.payout(m.Called(ctx, req, actorID))
}

func (m *MockPayoutService) ExecutePayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	return m.payout(m.Called(ctx, payoutID))
}

func (m *MockPayoutService) CancelPayout(ctx context.Context, payoutID, reason, actorID string) (*domain.Payout, error) {
	return m.payout(m.Called(ctx, payoutID, reason, actorID))
}

func (m *MockPayoutService) RetryFailedPayout(ctx context.Context, payoutID string, manual bool) (*domain.Payout, error) {
	return m.payout(m.Called(ctx, payoutID, manual))
}

func (m *MockPayoutService) TriggerCyclePayout(ctx context.Context, cycleID string) (*domain.Payout, error) {
	return m.payout(m.Called(ctx, cycleID))
}

func (m *MockPayoutService) ClaimDuePayouts(ctx context.Context, now time.Time, limit int) ([]domain.Payout, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]domain.Payout), args.Error(1)
}

func (m *MockPayoutService) ClaimRetryablePayouts(ctx context.Context, now time.Time, limit int) ([]domain.Payout, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]domain.Payout), args.Error(1)
}

// --- Mock CycleService ---
type MockCycleService struct {
	mock.Mock
}

var _ portssvc.CycleSvcFacade = (*MockCycleService)(nil)

func (m *MockCycleService) GetCycle(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

func (m *MockCycleService) GetActiveCycle(ctx context.Context, chamaID string) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, chamaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

func (m *MockCycleService) RecordContribution(ctx context.Context, cycleID string, amount decimal.Decimal) error {
	return m.Called(ctx, cycleID, amount).Error(0)
}

func (m *MockCycleService) CheckCompletion(ctx context.Context, cycleID string) (bool, error) {
	args := m.Called(ctx, cycleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCycleService) Contribute(ctx context.Context, req dto.ContributeRequest) (*domain.Contribution, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

// --- Mock AutoDebitService ---
type MockAutoDebitService struct {
	mock.Mock
}

var _ portssvc.AutoDebitSvcFacade = (*MockAutoDebitService)(nil)

func (m *MockAutoDebitService) UpsertAutoDebit(ctx context.Context, req dto.UpsertAutoDebitRequest) (*domain.AutoDebitConfig, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutoDebitConfig), args.Error(1)
}

func (m *MockAutoDebitService) GetAutoDebit(ctx context.Context, chamaID, memberID string) (*domain.AutoDebitConfig, error) {
	args := m.Called(ctx, chamaID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutoDebitConfig), args.Error(1)
}

func (m *MockAutoDebitService) ClaimDueAutoDebits(ctx context.Context, now time.Time, limit int) ([]domain.AutoDebitConfig, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]domain.AutoDebitConfig), args.Error(1)
}

func (m *MockAutoDebitService) ExecuteAutoDebit(ctx context.Context, configID string) (*domain.AutoDebitConfig, error) {
	args := m.Called(ctx, configID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutoDebitConfig), args.Error(1)
}

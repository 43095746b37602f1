package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock LedgerGateway ---
type MockLedger struct {
	mock.Mock
}

var _ portssvc.LedgerGateway = (*MockLedger)(nil)

func (m *MockLedger) ProcessContribution(ctx context.Context, req portssvc.LedgerContribution) (*portssvc.LedgerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.LedgerResult), args.Error(1)
}

func (m *MockLedger) ProcessPayout(ctx context.Context, req portssvc.LedgerPayout) (*portssvc.LedgerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.LedgerResult), args.Error(1)
}

func (m *MockLedger) GetChamaBalance(ctx context.Context, chamaID string) (decimal.Decimal, error) {
	args := m.Called(ctx, chamaID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// --- Mock NotificationGateway ---
type MockNotifier struct {
	mock.Mock
}

var _ portssvc.NotificationGateway = (*MockNotifier)(nil)

func (m *MockNotifier) SendSMS(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}

func (m *MockNotifier) SendEmail(ctx context.Context, to, subject, html string) error {
	args := m.Called(ctx, to, subject, html)
	return args.Error(0)
}

// --- Recording JobPublisher ---
type recordingPublisher struct {
	mu   sync.Mutex
	jobs []domain.Job
	err  error
}

var _ portssvc.JobPublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) Publish(ctx context.Context, job domain.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) published() []domain.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Job, len(p.jobs))
	copy(out, p.jobs)
	return out
}

// --- Mock CycleSvcFacade (as used by the auto-debit service) ---
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
	args := m.Called(ctx, cycleID, amount)
	return args.Error(0)
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

// steppingClock returns a clock that advances by step on every read.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

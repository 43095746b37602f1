package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// cycleService implements the CycleSvcFacade interface
type cycleService struct {
	BaseService
	chamaRepo      portsrepo.ChamaReader
	cycleRepo      portsrepo.CycleRepositoryWithTx
	ledger         portssvc.LedgerGateway
	idempotency    portssvc.IdempotencyStore
	publisher      portssvc.JobPublisher
	reminders      portssvc.ReminderCanceller
	idempotencyTTL time.Duration
}

// CycleOption is a functional option for configuring the cycle service
type CycleOption func(*cycleService)

// WithReminderCanceller lets contributions cancel the member's outstanding reminders.
func WithReminderCanceller(canceller portssvc.ReminderCanceller) CycleOption {
	return func(s *cycleService) {
		s.reminders = canceller
	}
}

// WithCycleIdempotencyTTL overrides how long contribution results are remembered.
func WithCycleIdempotencyTTL(ttl time.Duration) CycleOption {
	return func(s *cycleService) {
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// WithCycleClock pins the service clock.
func WithCycleClock(now func() time.Time) CycleOption {
	return func(s *cycleService) {
		s.Now = now
	}
}

// NewCycleService creates a new cycle service with the provided options
func NewCycleService(
	chamaRepo portsrepo.ChamaReader,
	cycleRepo portsrepo.CycleRepositoryWithTx,
	ledger portssvc.LedgerGateway,
	idempotency portssvc.IdempotencyStore,
	publisher portssvc.JobPublisher,
	options ...CycleOption,
) portssvc.CycleSvcFacade {
	svc := &cycleService{
		BaseService:    newBaseService(),
		chamaRepo:      chamaRepo,
		cycleRepo:      cycleRepo,
		ledger:         ledger,
		idempotency:    idempotency,
		publisher:      publisher,
		idempotencyTTL: domain.DefaultIdempotencyTTL,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.CycleSvcFacade = (*cycleService)(nil)

func (s *cycleService) GetCycle(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	return s.cycleRepo.FindCycleByID(ctx, cycleID)
}

// GetActiveCycle returns the chama's open cycle or an error wrapping apperrors.ErrNoActiveCycle.
func (s *cycleService) GetActiveCycle(ctx context.Context, chamaID string) (*domain.ContributionCycle, error) {
	cycle, err := s.cycleRepo.FindActiveCycleByChama(ctx, chamaID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewAppError(http.StatusConflict, "no open cycle", apperrors.ErrNoActiveCycle).With("chama_id", chamaID)
		}
		return nil, err
	}
	return cycle, nil
}

func (s *cycleService) RecordContribution(ctx context.Context, cycleID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: contribution amount must be positive", apperrors.ErrValidation)
	}

	tx, err := s.cycleRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.cycleRepo.Rollback(ctx, tx)

	cycle, err := s.cycleRepo.LockCycleInTx(ctx, tx, cycleID)
	if err != nil {
		return err
	}
	if cycle.IsCompleted() {
		return apperrors.NewInvalidStateError("cycle", cycle.ID, string(cycle.Status), "contribute to")
	}
	if err := s.cycleRepo.AddCollectedInTx(ctx, tx, cycle.ID, amount); err != nil {
		return fmt.Errorf("failed to add collected amount: %w", err)
	}
	return s.cycleRepo.Commit(ctx, tx)
}

// CheckCompletion completes the cycle once no active member is left unpaid.
// With auto-payout on, the payout trigger is published after the commit; a
// publish failure is returned alongside completed=true.
func (s *cycleService) CheckCompletion(ctx context.Context, cycleID string) (bool, error) {
	tx, err := s.cycleRepo.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.cycleRepo.Rollback(ctx, tx)

	cycle, err := s.cycleRepo.LockCycleInTx(ctx, tx, cycleID)
	if err != nil {
		return false, err
	}
	if cycle.IsCompleted() {
		return true, nil
	}

	unpaid, total, err := s.cycleRepo.CountUnpaidInTx(ctx, tx, *cycle)
	if err != nil {
		return false, fmt.Errorf("failed to count unpaid members: %w", err)
	}
	if unpaid > 0 || total == 0 {
		s.LogDebug(ctx, "Cycle still open", slog.String("cycle_id", cycle.ID), slog.Int("unpaid", unpaid), slog.Int("members", total))
		return false, nil
	}

	now := s.Now()
	cycle.Status = domain.CycleCompleted
	cycle.CompletedAt = &now
	if err := s.cycleRepo.UpdateCycleInTx(ctx, tx, *cycle); err != nil {
		return false, fmt.Errorf("failed to complete cycle: %w", err)
	}
	if err := s.cycleRepo.Commit(ctx, tx); err != nil {
		return false, fmt.Errorf("failed to commit cycle completion: %w", err)
	}
	s.LogInfo(ctx, "Cycle completed",
		slog.String("cycle_id", cycle.ID),
		slog.String("chama_id", cycle.ChamaID),
		slog.String("collected", cycle.CollectedAmount.String()))

	chama, err := s.chamaRepo.FindChamaByID(ctx, cycle.ChamaID)
	if err != nil {
		return true, fmt.Errorf("failed to load chama for payout trigger: %w", err)
	}
	if !chama.AutoPayout {
		return true, nil
	}

	job, err := domain.NewJob(uuid.NewString(), domain.JobPayoutTrigger, domain.PayoutTriggerKey(cycle.ID),
		domain.PayoutTriggerPayload{CycleID: cycle.ID}, now)
	if err != nil {
		return true, err
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		s.LogError(ctx, err, "Failed to publish payout trigger", slog.String("cycle_id", cycle.ID))
		return true, apperrors.NewAppError(http.StatusBadGateway, "failed to enqueue payout trigger", fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)).
			With("cycle_id", cycle.ID)
	}
	s.LogInfo(ctx, "Payout trigger enqueued", slog.String("cycle_id", cycle.ID), slog.String("job_id", job.ID))
	return true, nil
}

// Contribute posts the member's contribution for the chama's open cycle.
func (s *cycleService) Contribute(ctx context.Context, req dto.ContributeRequest) (*domain.Contribution, error) {
	var storeKey string
	if req.IdempotencyKey != "" {
		storeKey = "contribution:" + req.IdempotencyKey
		if cached, found, err := s.idempotency.Get(ctx, storeKey); err != nil {
			return nil, fmt.Errorf("failed to read idempotency key: %w", err)
		} else if found {
			var contribution domain.Contribution
			if err := json.Unmarshal(cached, &contribution); err != nil {
				return nil, fmt.Errorf("failed to decode cached contribution: %w", err)
			}
			s.LogDebug(ctx, "Returning cached contribution", slog.String("idempotency_key", req.IdempotencyKey))
			return &contribution, nil
		}
	}

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: contribution amount must be positive", apperrors.ErrValidation)
	}
	member, err := s.chamaRepo.FindMemberByID(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if member.ChamaID != req.ChamaID || !member.IsActive() {
		return nil, apperrors.NewAppError(http.StatusBadRequest, "member cannot contribute", apperrors.ErrValidation).
			With("member_id", member.ID).With("state", string(member.Status))
	}

	cycle, err := s.GetActiveCycle(ctx, req.ChamaID)
	if err != nil {
		return nil, err
	}

	paid, err := s.cycleRepo.HasCompletedContribution(ctx, cycle.ID, member.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check contribution: %w", err)
	}
	if paid {
		return nil, apperrors.NewAppError(http.StatusConflict, "cannot contribute", apperrors.ErrAlreadyContributed).
			With("cycle_id", cycle.ID).With("member_id", member.ID)
	}

	reference := fmt.Sprintf("contribution-%s-%s", cycle.ID, member.ID)
	result, err := s.ledger.ProcessContribution(ctx, portssvc.LedgerContribution{
		UserID:    member.UserID,
		ChamaID:   cycle.ChamaID,
		Amount:    req.Amount,
		Reference: reference,
		Memo:      fmt.Sprintf("Cycle %d contribution", cycle.CycleNumber),
	})
	if err != nil {
		s.LogError(ctx, err, "Ledger rejected contribution", slog.String("cycle_id", cycle.ID), slog.String("member_id", member.ID))
		return nil, apperrors.NewAppError(http.StatusBadGateway, "ledger rejected contribution", fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)).
			With("cycle_id", cycle.ID).With("member_id", member.ID)
	}

	txID := result.TransactionID
	contribution := domain.Contribution{
		ID:            uuid.NewString(),
		CycleID:       cycle.ID,
		ChamaID:       cycle.ChamaID,
		MemberID:      member.ID,
		Amount:        req.Amount,
		Status:        domain.ContributionCompleted,
		TransactionID: &txID,
		PaymentMethod: req.PaymentMethod,
		Reference:     reference,
		ContributedAt: s.Now(),
	}

	if err := s.saveContribution(ctx, contribution); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Contribution recorded",
		slog.String("contribution_id", contribution.ID),
		slog.String("cycle_id", cycle.ID),
		slog.String("member_id", member.ID),
		slog.String("amount", req.Amount.String()))

	if s.reminders != nil {
		if err := s.reminders.CancelReminders(ctx, cycle.ID, member.ID); err != nil {
			s.LogWarn(ctx, "Failed to cancel reminders", slog.String("cycle_id", cycle.ID), slog.String("error", err.Error()))
		}
	}

	if _, err := s.CheckCompletion(ctx, cycle.ID); err != nil {
		s.LogError(ctx, err, "Completion check failed after contribution", slog.String("cycle_id", cycle.ID))
	}

	if storeKey != "" {
		if encoded, err := json.Marshal(contribution); err == nil {
			if err := s.idempotency.Put(ctx, storeKey, encoded, s.idempotencyTTL); err != nil {
				s.LogWarn(ctx, "Failed to store idempotency key", slog.String("idempotency_key", req.IdempotencyKey), slog.String("error", err.Error()))
			}
		}
	}
	return &contribution, nil
}

func (s *cycleService) saveContribution(ctx context.Context, contribution domain.Contribution) error {
	tx, err := s.cycleRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.cycleRepo.Rollback(ctx, tx)

	if err := s.cycleRepo.SaveContributionInTx(ctx, tx, contribution); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyContributed) {
			return apperrors.NewAppError(http.StatusConflict, "cannot contribute", err).
				With("cycle_id", contribution.CycleID).With("member_id", contribution.MemberID)
		}
		return fmt.Errorf("failed to save contribution: %w", err)
	}
	if err := s.cycleRepo.AddCollectedInTx(ctx, tx, contribution.CycleID, contribution.Amount); err != nil {
		return fmt.Errorf("failed to add collected amount: %w", err)
	}
	return s.cycleRepo.Commit(ctx, tx)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/google/uuid"
)

// autoDebitService implements the AutoDebitSvcFacade interface
type autoDebitService struct {
	BaseService
	chamaRepo     portsrepo.ChamaReader
	autoDebitRepo portsrepo.AutoDebitRepositoryFacade
	cycles        portssvc.CycleSvcFacade
	retryPolicy   domain.RetryPolicy
	claimLease    time.Duration
}

// AutoDebitOption is a functional option for configuring the auto-debit service
type AutoDebitOption func(*autoDebitService)

// WithAutoDebitRetryPolicy overrides the auto-debit circuit breaker.
func WithAutoDebitRetryPolicy(policy domain.RetryPolicy) AutoDebitOption {
	return func(s *autoDebitService) {
		s.retryPolicy = policy
	}
}

// WithAutoDebitClaimLease overrides how long claimed configs stay leased to a sweep.
func WithAutoDebitClaimLease(lease time.Duration) AutoDebitOption {
	return func(s *autoDebitService) {
		if lease > 0 {
			s.claimLease = lease
		}
	}
}

// WithAutoDebitClock pins the service clock.
func WithAutoDebitClock(now func() time.Time) AutoDebitOption {
	return func(s *autoDebitService) {
		s.Now = now
	}
}

// NewAutoDebitService creates a new auto-debit service with the provided options
func NewAutoDebitService(chamaRepo portsrepo.ChamaReader, autoDebitRepo portsrepo.AutoDebitRepositoryFacade, cycles portssvc.CycleSvcFacade, options ...AutoDebitOption) portssvc.AutoDebitSvcFacade {
	svc := &autoDebitService{
		BaseService:   newBaseService(),
		chamaRepo:     chamaRepo,
		autoDebitRepo: autoDebitRepo,
		cycles:        cycles,
		retryPolicy:   domain.DefaultRetryPolicy(),
		claimLease:    DefaultClaimLease,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AutoDebitSvcFacade = (*autoDebitService)(nil)

func (s *autoDebitService) GetAutoDebit(ctx context.Context, chamaID, memberID string) (*domain.AutoDebitConfig, error) {
	return s.autoDebitRepo.FindAutoDebitByMember(ctx, chamaID, memberID)
}

// UpsertAutoDebit creates or replaces the member's instruction. Enabling a
// disabled config, or moving its day, reschedules it and closes the breaker.
func (s *autoDebitService) UpsertAutoDebit(ctx context.Context, req dto.UpsertAutoDebitRequest) (*domain.AutoDebitConfig, error) {
	if req.AutoDebitDay < 1 || req.AutoDebitDay > 31 {
		return nil, fmt.Errorf("%w: auto-debit day must be between 1 and 31", apperrors.ErrValidation)
	}
	switch req.AmountType {
	case domain.AmountCycleAmount:
	case domain.AmountFixed:
		if req.FixedAmount == nil || !req.FixedAmount.IsPositive() {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, domain.ErrFixedAmountMissing)
		}
	default:
		return nil, fmt.Errorf("%w: unknown amount type %q", apperrors.ErrValidation, req.AmountType)
	}

	member, err := s.chamaRepo.FindMemberByID(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if member.ChamaID != req.ChamaID {
		return nil, apperrors.NewAppError(http.StatusBadRequest, "member does not belong to chama", apperrors.ErrValidation).
			With("member_id", member.ID).With("chama_id", req.ChamaID)
	}

	existing, err := s.autoDebitRepo.FindAutoDebitByMember(ctx, req.ChamaID, req.MemberID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load auto-debit: %w", err)
	}

	now := s.Now()
	cfg := domain.AutoDebitConfig{
		ID:        uuid.NewString(),
		ChamaID:   req.ChamaID,
		MemberID:  req.MemberID,
		CreatedAt: now,
	}
	reschedule := true
	if existing != nil {
		cfg = *existing
		reschedule = !existing.Enabled || existing.AutoDebitDay != req.AutoDebitDay
	}
	cfg.Enabled = req.Enabled
	cfg.PaymentMethod = req.PaymentMethod
	cfg.AmountType = req.AmountType
	cfg.FixedAmount = nil
	if req.AmountType == domain.AmountFixed {
		cfg.FixedAmount = req.FixedAmount
	}
	cfg.AutoDebitDay = req.AutoDebitDay
	cfg.UpdatedAt = now
	if req.Enabled && reschedule {
		cfg.NextExecutionAt = domain.FirstExecutionDate(req.AutoDebitDay, now)
		cfg.RetryCount = 0
		cfg.LastFailedReason = nil
	}

	if err := s.autoDebitRepo.UpsertAutoDebit(ctx, cfg); err != nil {
		s.LogError(ctx, err, "Failed to save auto-debit", slog.String("member_id", cfg.MemberID))
		return nil, fmt.Errorf("failed to save auto-debit: %w", err)
	}
	s.LogInfo(ctx, "Auto-debit saved",
		slog.String("auto_debit_id", cfg.ID),
		slog.Bool("enabled", cfg.Enabled),
		slog.Time("next_execution_at", cfg.NextExecutionAt))
	return &cfg, nil
}

func (s *autoDebitService) ClaimDueAutoDebits(ctx context.Context, now time.Time, limit int) ([]domain.AutoDebitConfig, error) {
	return s.autoDebitRepo.ClaimDueAutoDebits(ctx, now, s.retryPolicy.Cooldown, s.claimLease, limit)
}

// ExecuteAutoDebit contributes on the member's behalf. Contributions that are
// already in, or that have no open cycle to land in, count as a skipped run.
func (s *autoDebitService) ExecuteAutoDebit(ctx context.Context, configID string) (*domain.AutoDebitConfig, error) {
	cfg, err := s.autoDebitRepo.FindAutoDebitByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, apperrors.NewInvalidStateError("auto-debit", cfg.ID, "disabled", "execute")
	}

	now := s.Now()
	if s.retryPolicy.Exhausted(cfg.RetryCount) {
		cfg.Enabled = false
		cfg.ClaimedUntil = nil
		cfg.UpdatedAt = now
		if err := s.autoDebitRepo.SaveExecutionResult(ctx, *cfg); err != nil {
			return nil, fmt.Errorf("failed to disable auto-debit: %w", err)
		}
		return cfg, s.breakerError(cfg)
	}

	runErr := s.run(ctx, *cfg)
	switch {
	case runErr == nil:
		cfg.RecordSuccess(domain.ExecutionSuccess, now)
	case errors.Is(runErr, apperrors.ErrAlreadyContributed), errors.Is(runErr, apperrors.ErrNoActiveCycle):
		s.LogInfo(ctx, "Auto-debit skipped", slog.String("auto_debit_id", cfg.ID), slog.String("reason", runErr.Error()))
		cfg.RecordSuccess(domain.ExecutionSkipped, now)
		runErr = nil
	default:
		tripped := cfg.RecordFailure(runErr.Error(), s.retryPolicy, now)
		s.LogWarn(ctx, "Auto-debit failed",
			slog.String("auto_debit_id", cfg.ID),
			slog.String("error", runErr.Error()),
			slog.Int("retry_count", cfg.RetryCount),
			slog.Bool("disabled", tripped))
		if tripped {
			runErr = fmt.Errorf("%w: %w", s.breakerError(cfg), runErr)
		}
	}

	if err := s.autoDebitRepo.SaveExecutionResult(ctx, *cfg); err != nil {
		return nil, fmt.Errorf("failed to save auto-debit result: %w", err)
	}
	return cfg, runErr
}

func (s *autoDebitService) run(ctx context.Context, cfg domain.AutoDebitConfig) error {
	chama, err := s.chamaRepo.FindChamaByID(ctx, cfg.ChamaID)
	if err != nil {
		return err
	}
	amount, err := cfg.ResolveAmount(chama.ContributionAmount)
	if err != nil {
		return err
	}
	_, err = s.cycles.Contribute(ctx, dto.ContributeRequest{
		ChamaID:        cfg.ChamaID,
		MemberID:       cfg.MemberID,
		Amount:         amount,
		PaymentMethod:  cfg.PaymentMethod,
		IdempotencyKey: domain.AutoDebitRunKey(cfg.ID, cfg.NextExecutionAt),
	})
	return err
}

func (s *autoDebitService) breakerError(cfg *domain.AutoDebitConfig) *apperrors.AppError {
	return apperrors.NewAppError(http.StatusConflict, "auto-debit disabled after repeated failures", apperrors.ErrMaxRetriesExceeded).
		With("id", cfg.ID).
		With("state", "disabled").
		With("retry_count", strconv.Itoa(cfg.RetryCount))
}

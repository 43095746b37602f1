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
	"github.com/amkoya-stack/cycles-sub000/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DefaultClaimLease is how long a sweep owns the rows it claimed.
const DefaultClaimLease = 5 * time.Minute

// payoutService implements the PayoutSvcFacade interface
type payoutService struct {
	BaseService
	chamaRepo    portsrepo.ChamaReader
	cycleRepo    portsrepo.CycleRepositoryFacade
	rotationRepo portsrepo.RotationReader
	payoutRepo   portsrepo.PayoutRepositoryWithTx
	advancer     portssvc.RotationAdvancer
	ledger       portssvc.LedgerGateway
	notifier     portssvc.NotificationGateway
	retryPolicy  domain.RetryPolicy
	claimLease   time.Duration
}

// PayoutOption is a functional option for configuring the payout service
type PayoutOption func(*payoutService)

// WithPayoutNotifier sends the recipient an SMS and email once funds move.
func WithPayoutNotifier(notifier portssvc.NotificationGateway) PayoutOption {
	return func(s *payoutService) {
		s.notifier = notifier
	}
}

// WithPayoutRetryPolicy overrides the circuit breaker used by sweep-driven retries.
func WithPayoutRetryPolicy(policy domain.RetryPolicy) PayoutOption {
	return func(s *payoutService) {
		s.retryPolicy = policy
	}
}

// WithPayoutClaimLease overrides how long claimed payouts stay leased to a sweep.
func WithPayoutClaimLease(lease time.Duration) PayoutOption {
	return func(s *payoutService) {
		if lease > 0 {
			s.claimLease = lease
		}
	}
}

// WithPayoutClock pins the service clock.
func WithPayoutClock(now func() time.Time) PayoutOption {
	return func(s *payoutService) {
		s.Now = now
	}
}

// NewPayoutService creates a new payout service with the provided options
func NewPayoutService(
	chamaRepo portsrepo.ChamaReader,
	cycleRepo portsrepo.CycleRepositoryFacade,
	rotationRepo portsrepo.RotationReader,
	payoutRepo portsrepo.PayoutRepositoryWithTx,
	advancer portssvc.RotationAdvancer,
	ledger portssvc.LedgerGateway,
	options ...PayoutOption,
) portssvc.PayoutSvcFacade {
	svc := &payoutService{
		BaseService:  newBaseService(),
		chamaRepo:    chamaRepo,
		cycleRepo:    cycleRepo,
		rotationRepo: rotationRepo,
		payoutRepo:   payoutRepo,
		advancer:     advancer,
		ledger:       ledger,
		retryPolicy:  domain.DefaultRetryPolicy(),
		claimLease:   DefaultClaimLease,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PayoutSvcFacade = (*payoutService)(nil)

func (s *payoutService) GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	return s.payoutRepo.FindPayoutByID(ctx, payoutID)
}

// GetPayoutHistory lists payouts newest first.
func (s *payoutService) GetPayoutHistory(ctx context.Context, filter domain.PayoutFilter, page, limit int) (*domain.PayoutPage, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown payout status %q", apperrors.ErrValidation, *filter.Status)
	}
	page, limit, offset := pagination.Normalize(page, limit)

	payouts, total, err := s.payoutRepo.ListPayouts(ctx, filter, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payouts", slog.Int("page", page), slog.Int("limit", limit))
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	if payouts == nil {
		payouts = []domain.Payout{}
	}
	return &domain.PayoutPage{Payouts: payouts, Page: page, Limit: limit, Total: total}, nil
}

// SchedulePayout creates a pending payout for a completed cycle.
func (s *payoutService) SchedulePayout(ctx context.Context, req dto.SchedulePayoutRequest, actorID string) (*domain.Payout, error) {
	scheduledAt := s.Now()
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}
	return s.schedule(ctx, req.CycleID, req.RecipientMemberID, req.Amount, scheduledAt, nil, actorID)
}

func (s *payoutService) schedule(ctx context.Context, cycleID, recipientID string, amount decimal.Decimal, scheduledAt time.Time, positionID *string, actorID string) (*domain.Payout, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payout amount must be positive", apperrors.ErrValidation)
	}

	recipient, err := s.chamaRepo.FindMemberByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	tx, err := s.payoutRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.payoutRepo.Rollback(ctx, tx)

	cycle, err := s.cycleRepo.LockCycleInTx(ctx, tx, cycleID)
	if err != nil {
		return nil, err
	}
	if !cycle.IsCompleted() {
		return nil, apperrors.NewInvalidStateError("cycle", cycle.ID, string(cycle.Status), "schedule payout for")
	}
	if recipient.ChamaID != cycle.ChamaID || !recipient.IsActive() {
		return nil, apperrors.NewAppError(http.StatusBadRequest, "recipient is not an active member of the chama", apperrors.ErrValidation).
			With("member_id", recipient.ID).With("state", string(recipient.Status))
	}

	exists, err := s.payoutRepo.ExistsActivePayoutForCycleInTx(ctx, tx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payout: %w", err)
	}
	if exists {
		return nil, apperrors.NewAppError(http.StatusConflict, "cannot schedule payout", apperrors.ErrDuplicatePayout).With("cycle_id", cycle.ID)
	}

	if positionID == nil {
		positionID, err = s.recipientPosition(ctx, *cycle, recipient.ID)
		if err != nil {
			return nil, err
		}
	}

	contributions, err := s.cycleRepo.ListCompletedContributionsInTx(ctx, tx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}

	now := s.Now()
	payout := domain.Payout{
		ID:                 uuid.NewString(),
		ChamaID:            cycle.ChamaID,
		CycleID:            cycle.ID,
		RecipientMemberID:  recipient.ID,
		Amount:             amount,
		Status:             domain.PayoutPending,
		ScheduledAt:        scheduledAt,
		RotationPositionID: positionID,
		AuditFields:        domain.NewAuditFields(actorID, now),
	}
	distributions := make([]domain.PayoutDistribution, len(contributions))
	for i, c := range contributions {
		distributions[i] = domain.PayoutDistribution{
			ID:             uuid.NewString(),
			PayoutID:       payout.ID,
			ContributionID: c.ID,
			Amount:         c.Amount,
			CreatedAt:      now,
		}
	}

	if err := s.payoutRepo.CreatePayoutInTx(ctx, tx, payout, distributions); err != nil {
		if errors.Is(err, apperrors.ErrDuplicatePayout) {
			return nil, apperrors.NewAppError(http.StatusConflict, "cannot schedule payout", err).With("cycle_id", cycle.ID)
		}
		s.LogError(ctx, err, "Failed to save payout", slog.String("cycle_id", cycle.ID))
		return nil, fmt.Errorf("failed to save payout: %w", err)
	}
	if err := s.payoutRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit payout: %w", err)
	}

	s.LogInfo(ctx, "Payout scheduled",
		slog.String("payout_id", payout.ID),
		slog.String("cycle_id", cycle.ID),
		slog.String("recipient_member_id", recipient.ID),
		slog.String("amount", amount.String()),
		slog.Int("distributions", len(distributions)))
	return &payout, nil
}

// recipientPosition finds the recipient's unpaid slot in the cycle's rotation.
func (s *payoutService) recipientPosition(ctx context.Context, cycle domain.ContributionCycle, memberID string) (*string, error) {
	if cycle.RotationOrderID == "" {
		return nil, nil
	}
	positions, err := s.rotationRepo.ListPositions(ctx, cycle.RotationOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rotation positions: %w", err)
	}
	for _, p := range positions {
		if p.MemberID == memberID && p.Status != domain.PositionCompleted {
			id := p.ID
			return &id, nil
		}
	}
	return nil, nil
}

// ExecutePayout moves a pending payout to processing and commits, calls the
// ledger with no transaction open, then records completed or failed in a
// second transaction. A payout left processing by an interrupted attempt is
// resumed with its stored external reference, so the ledger deduplicates the
// re-run.
func (s *payoutService) ExecutePayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	payout, recipient, err := s.startAttempt(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	reference := *payout.ExternalReference
	logger := s.GetLogger(ctx).With(slog.String("payout_id", payout.ID), slog.Int("attempt", payout.RetryCount+1))

	result, ledgerErr := s.ledger.ProcessPayout(ctx, portssvc.LedgerPayout{
		ChamaID:           payout.ChamaID,
		RecipientUserID:   recipient.UserID,
		Amount:            payout.Amount,
		Memo:              "Chama cycle payout",
		ExternalReference: reference,
	})
	if ledgerErr != nil {
		return nil, s.recordFailure(ctx, payout.ID, reference, ledgerErr, logger)
	}

	settled, fresh, err := s.settle(ctx, payout.ID, reference, result.TransactionID, logger)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return settled, nil
	}
	logger.Info("Payout completed",
		slog.String("transaction_id", result.TransactionID),
		slog.String("external_reference", reference),
		slog.String("amount", settled.Amount.String()))

	s.notifyRecipient(ctx, *recipient, *settled)
	return settled, nil
}

// startAttempt commits the payout as processing and returns it with its recipient.
func (s *payoutService) startAttempt(ctx context.Context, payoutID string) (*domain.Payout, *domain.Member, error) {
	tx, err := s.payoutRepo.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.payoutRepo.Rollback(ctx, tx)

	payout, err := s.payoutRepo.LockPayoutInTx(ctx, tx, payoutID)
	if err != nil {
		return nil, nil, err
	}
	resuming := payout.Status == domain.PayoutProcessing && payout.ExternalReference != nil
	if payout.Status != domain.PayoutPending && !resuming {
		return nil, nil, apperrors.NewInvalidStateError("payout", payout.ID, string(payout.Status), "execute")
	}
	recipient, err := s.chamaRepo.FindMemberByID(ctx, payout.RecipientMemberID)
	if err != nil {
		return nil, nil, err
	}

	if resuming {
		s.LogWarn(ctx, "Resuming interrupted payout",
			slog.String("payout_id", payout.ID),
			slog.String("external_reference", *payout.ExternalReference))
	} else {
		reference := domain.PayoutExternalReference(payout.ID, payout.LastUpdatedAt)
		payout.Status = domain.PayoutProcessing
		payout.ExternalReference = &reference
	}
	payout.Touch(domain.SystemActor, s.Now())
	if err := s.payoutRepo.UpdatePayoutInTx(ctx, tx, *payout); err != nil {
		return nil, nil, fmt.Errorf("failed to mark payout processing: %w", err)
	}
	if err := s.payoutRepo.Commit(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit payout processing: %w", err)
	}
	return payout, recipient, nil
}

// lockAttempt locks the payout and checks it is still processing the attempt
// identified by reference.
func (s *payoutService) lockAttempt(ctx context.Context, tx pgx.Tx, payoutID, reference string) (*domain.Payout, error) {
	payout, err := s.payoutRepo.LockPayoutInTx(ctx, tx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.PayoutProcessing || payout.ExternalReference == nil || *payout.ExternalReference != reference {
		return payout, apperrors.NewInvalidStateError("payout", payout.ID, string(payout.Status), "settle")
	}
	return payout, nil
}

// settle records a successful ledger call, stamps the cycle and advances the
// rotation in one transaction. fresh is false when a concurrent run of the
// same attempt settled it first.
func (s *payoutService) settle(ctx context.Context, payoutID, reference, transactionID string, logger *slog.Logger) (payout *domain.Payout, fresh bool, err error) {
	tx, err := s.payoutRepo.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.payoutRepo.Rollback(ctx, tx)

	payout, err = s.lockAttempt(ctx, tx, payoutID, reference)
	if err != nil {
		if payout != nil && payout.Status == domain.PayoutCompleted &&
			payout.ExternalReference != nil && *payout.ExternalReference == reference {
			return payout, false, nil
		}
		return nil, false, err
	}

	now := s.Now()
	payout.Status = domain.PayoutCompleted
	payout.ExecutedAt = &now
	payout.TransactionID = &transactionID
	payout.FailedReason = nil
	payout.Touch(domain.SystemActor, now)
	if err := s.payoutRepo.UpdatePayoutInTx(ctx, tx, *payout); err != nil {
		return nil, false, fmt.Errorf("failed to complete payout: %w", err)
	}

	cycle, err := s.cycleRepo.LockCycleInTx(ctx, tx, payout.CycleID)
	if err != nil {
		return nil, false, err
	}
	cycle.PayoutExecutedAt = &now
	if err := s.cycleRepo.UpdateCycleInTx(ctx, tx, *cycle); err != nil {
		return nil, false, fmt.Errorf("failed to stamp cycle payout: %w", err)
	}

	if payout.RotationPositionID != nil && s.advancer != nil {
		if _, err := s.advancer.AdvanceRotationInTx(ctx, tx, *payout.RotationPositionID, *cycle, now); err != nil {
			logger.Error("Failed to advance rotation, payout stays processing", slog.String("error", err.Error()))
			return nil, false, fmt.Errorf("failed to advance rotation: %w", err)
		}
	}

	if err := s.payoutRepo.Commit(ctx, tx); err != nil {
		return nil, false, fmt.Errorf("failed to commit payout: %w", err)
	}
	return payout, true, nil
}

// recordFailure persists the failed attempt and returns the error to re-raise.
func (s *payoutService) recordFailure(ctx context.Context, payoutID, reference string, cause error, logger *slog.Logger) error {
	tx, err := s.payoutRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.payoutRepo.Rollback(ctx, tx)

	payout, err := s.lockAttempt(ctx, tx, payoutID, reference)
	if err != nil {
		logger.Warn("Ledger failure not recorded", slog.String("cause", cause.Error()), slog.String("error", err.Error()))
		return err
	}

	now := s.Now()
	reason := cause.Error()
	payout.Status = domain.PayoutFailed
	payout.FailedReason = &reason
	payout.RetryCount++
	payout.LastFailedAt = &now
	payout.Touch(domain.SystemActor, now)
	if err := s.payoutRepo.UpdatePayoutInTx(ctx, tx, *payout); err != nil {
		return fmt.Errorf("failed to record payout failure: %w", err)
	}
	if err := s.payoutRepo.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit payout failure: %w", err)
	}

	exhausted := s.retryPolicy.Exhausted(payout.RetryCount)
	logger.Warn("Payout failed",
		slog.String("error", reason),
		slog.Int("retry_count", payout.RetryCount),
		slog.Bool("breaker_open", exhausted))

	wrapped := fmt.Errorf("%w: %w", apperrors.ErrUpstream, cause)
	if exhausted {
		wrapped = fmt.Errorf("%w: %w", apperrors.ErrMaxRetriesExceeded, wrapped)
	}
	return apperrors.NewAppError(http.StatusBadGateway, "payout execution failed", wrapped).
		With("id", payout.ID).
		With("state", string(payout.Status)).
		With("retry_count", strconv.Itoa(payout.RetryCount))
}

func (s *payoutService) notifyRecipient(ctx context.Context, recipient domain.Member, payout domain.Payout) {
	if s.notifier == nil {
		return
	}
	message := fmt.Sprintf("Hi %s, your chama payout of %s has been sent.", recipient.Name, payout.Amount.StringFixed(2))
	if recipient.Phone != "" {
		if err := s.notifier.SendSMS(ctx, recipient.Phone, message); err != nil {
			s.LogWarn(ctx, "Payout SMS failed", slog.String("payout_id", payout.ID), slog.String("error", err.Error()))
		}
	}
	if recipient.Email != "" {
		html := fmt.Sprintf("<p>%s</p>", message)
		if err := s.notifier.SendEmail(ctx, recipient.Email, "Your chama payout is on its way", html); err != nil {
			s.LogWarn(ctx, "Payout email failed", slog.String("payout_id", payout.ID), slog.String("error", err.Error()))
		}
	}
}

// CancelPayout cancels a pending or failed payout.
func (s *payoutService) CancelPayout(ctx context.Context, payoutID, reason, actorID string) (*domain.Payout, error) {
	tx, err := s.payoutRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.payoutRepo.Rollback(ctx, tx)

	payout, err := s.payoutRepo.LockPayoutInTx(ctx, tx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status == domain.PayoutCancelled {
		return nil, apperrors.NewAppError(http.StatusConflict, "cannot cancel payout", apperrors.ErrAlreadyCancelled).
			With("id", payout.ID).With("state", string(payout.Status))
	}
	if !payout.Status.CanTransitionTo(domain.PayoutCancelled) {
		return nil, apperrors.NewInvalidStateError("payout", payout.ID, string(payout.Status), "cancel")
	}

	payout.Status = domain.PayoutCancelled
	payout.CancelledReason = &reason
	payout.Touch(actorID, s.Now())
	if err := s.payoutRepo.UpdatePayoutInTx(ctx, tx, *payout); err != nil {
		return nil, fmt.Errorf("failed to cancel payout: %w", err)
	}
	if err := s.payoutRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	s.LogInfo(ctx, "Payout cancelled", slog.String("payout_id", payout.ID), slog.String("actor_id", actorID))
	return payout, nil
}

// RetryFailedPayout resets a failed payout to pending and runs it again.
func (s *payoutService) RetryFailedPayout(ctx context.Context, payoutID string, manual bool) (*domain.Payout, error) {
	tx, err := s.payoutRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.payoutRepo.Rollback(ctx, tx)

	payout, err := s.payoutRepo.LockPayoutInTx(ctx, tx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.PayoutFailed {
		return nil, apperrors.NewInvalidStateError("payout", payout.ID, string(payout.Status), "retry")
	}
	if !manual && s.retryPolicy.Exhausted(payout.RetryCount) {
		return nil, apperrors.NewAppError(http.StatusConflict, "payout needs manual review", apperrors.ErrMaxRetriesExceeded).
			With("id", payout.ID).
			With("state", string(payout.Status)).
			With("retry_count", strconv.Itoa(payout.RetryCount))
	}

	payout.Status = domain.PayoutPending
	payout.Touch(domain.SystemActor, s.Now())
	if err := s.payoutRepo.UpdatePayoutInTx(ctx, tx, *payout); err != nil {
		return nil, fmt.Errorf("failed to reset payout: %w", err)
	}
	if err := s.payoutRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit payout reset: %w", err)
	}
	s.LogInfo(ctx, "Retrying payout",
		slog.String("payout_id", payout.ID),
		slog.Int("retry_count", payout.RetryCount),
		slog.Bool("manual", manual))

	return s.ExecutePayout(ctx, payout.ID)
}

// TriggerCyclePayout pays a completed cycle's collected amount to its rotation recipient.
// Triggering a cycle that already has a payout resumes that payout instead.
func (s *payoutService) TriggerCyclePayout(ctx context.Context, cycleID string) (*domain.Payout, error) {
	cycle, err := s.cycleRepo.FindCycleByID(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.PayoutRecipientPositionID == nil {
		return nil, apperrors.NewInvalidStateError("cycle", cycle.ID, string(cycle.Status), "trigger payout without a recipient for")
	}
	position, err := s.rotationRepo.FindPositionByID(ctx, *cycle.PayoutRecipientPositionID)
	if err != nil {
		return nil, err
	}

	payout, err := s.schedule(ctx, cycle.ID, position.MemberID, cycle.CollectedAmount, s.Now(), &position.ID, domain.SystemActor)
	if errors.Is(err, apperrors.ErrDuplicatePayout) {
		existing, findErr := s.activePayoutForCycle(ctx, cycle.ID)
		if findErr != nil {
			return nil, findErr
		}
		if existing.Status != domain.PayoutPending {
			s.LogInfo(ctx, "Cycle payout already in progress", slog.String("payout_id", existing.ID), slog.String("status", string(existing.Status)))
			return existing, nil
		}
		payout = existing
	} else if err != nil {
		return nil, err
	}

	return s.ExecutePayout(ctx, payout.ID)
}

func (s *payoutService) activePayoutForCycle(ctx context.Context, cycleID string) (*domain.Payout, error) {
	payouts, _, err := s.payoutRepo.ListPayouts(ctx, domain.PayoutFilter{CycleID: &cycleID}, pagination.MaxLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find cycle payout: %w", err)
	}
	for i := range payouts {
		if payouts[i].Status != domain.PayoutCancelled {
			return &payouts[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError("payout for cycle", cycleID)
}

func (s *payoutService) ClaimDuePayouts(ctx context.Context, now time.Time, limit int) ([]domain.Payout, error) {
	return s.payoutRepo.ClaimDuePayouts(ctx, now, s.claimLease, limit)
}

func (s *payoutService) ClaimRetryablePayouts(ctx context.Context, now time.Time, limit int) ([]domain.Payout, error) {
	return s.payoutRepo.ClaimRetryablePayouts(ctx, now, s.retryPolicy.Cooldown, s.retryPolicy.MaxRetries, s.claimLease, limit)
}

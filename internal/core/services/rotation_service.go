package services

import (
	"context"
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
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// rotationService implements the RotationSvcFacade interface
type rotationService struct {
	BaseService
	chamaRepo     portsrepo.ChamaReader
	rotationRepo  portsrepo.RotationRepositoryWithTx
	cycleRepo     portsrepo.CycleWriter
	assigner      *RotationAssigner
	skippedPolicy domain.SkippedPositionPolicy
}

// RotationOption is a functional option for configuring the rotation service
type RotationOption func(*rotationService)

// WithSkippedPositionPolicy decides whether skipped positions are revisited at the end of a rotation.
func WithSkippedPositionPolicy(policy domain.SkippedPositionPolicy) RotationOption {
	return func(s *rotationService) {
		if policy != "" {
			s.skippedPolicy = policy
		}
	}
}

// WithRotationAssigner replaces the default assigner.
func WithRotationAssigner(assigner *RotationAssigner) RotationOption {
	return func(s *rotationService) {
		s.assigner = assigner
	}
}

// WithRotationClock pins the service clock.
func WithRotationClock(now func() time.Time) RotationOption {
	return func(s *rotationService) {
		s.Now = now
	}
}

// NewRotationService creates a new rotation service with the provided options
func NewRotationService(chamaRepo portsrepo.ChamaReader, rotationRepo portsrepo.RotationRepositoryWithTx, cycleRepo portsrepo.CycleWriter, options ...RotationOption) portssvc.RotationSvcFacade {
	svc := &rotationService{
		BaseService:   newBaseService(),
		chamaRepo:     chamaRepo,
		rotationRepo:  rotationRepo,
		cycleRepo:     cycleRepo,
		assigner:      NewRotationAssigner(DefaultMeritWeights()),
		skippedPolicy: domain.SkippedBypass,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.RotationSvcFacade = (*rotationService)(nil)

// GetRotationStatus returns the chama's active rotation together with its positions.
func (s *rotationService) GetRotationStatus(ctx context.Context, chamaID string) (*domain.RotationOverview, error) {
	order, err := s.rotationRepo.FindActiveRotationByChama(ctx, chamaID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find active rotation", slog.String("chama_id", chamaID))
		}
		return nil, err
	}

	positions, err := s.rotationRepo.ListPositions(ctx, order.ID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list rotation positions", slog.String("rotation_order_id", order.ID))
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return &domain.RotationOverview{Order: *order, Positions: positions}, nil
}

// GetNextRecipient returns the position due to receive the next payout.
func (s *rotationService) GetNextRecipient(ctx context.Context, rotationOrderID string) (*domain.RotationPosition, error) {
	order, err := s.rotationRepo.FindRotationByID(ctx, rotationOrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.RotationCompleted {
		return nil, apperrors.NewInvalidStateError("rotation", order.ID, string(order.Status), "get next recipient of")
	}

	positions, err := s.rotationRepo.ListPositions(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	overview := domain.RotationOverview{Order: *order, Positions: positions}
	current := overview.Current()
	if current == nil {
		return nil, apperrors.NewNotFoundError("current rotation position", order.ID)
	}
	return current, nil
}

// CreateRotation assigns the chama's active members to positions and opens the first cycle.
func (s *rotationService) CreateRotation(ctx context.Context, req dto.CreateRotationRequest, actorID string) (*domain.RotationOverview, error) {
	if !req.Policy.IsValid() {
		return nil, fmt.Errorf("%w: unknown rotation policy %q", apperrors.ErrValidation, req.Policy)
	}
	if req.CycleDurationMonths < 1 {
		return nil, fmt.Errorf("%w: cycle duration must be at least one month", apperrors.ErrValidation)
	}

	chama, err := s.chamaRepo.FindChamaByID(ctx, req.ChamaID)
	if err != nil {
		return nil, err
	}
	members, err := s.chamaRepo.ListActiveMembers(ctx, chama.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	var metrics map[string]domain.MemberMetrics
	if req.Policy == domain.PolicyMerit {
		metrics, err = s.chamaRepo.ListMemberMetrics(ctx, chama.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load member metrics: %w", err)
		}
	}

	now := s.Now()
	order := domain.RotationOrder{
		ID:                  uuid.NewString(),
		ChamaID:             chama.ID,
		Policy:              req.Policy,
		CycleDurationMonths: req.CycleDurationMonths,
		CurrentPosition:     1,
		Status:              domain.RotationActive,
		StartDate:           req.StartDate.UTC(),
		AuditFields:         domain.NewAuditFields(actorID, now),
	}

	positions, err := s.assigner.AssignPositions(AssignmentInput{
		RotationOrderID: order.ID,
		Members:         members,
		Policy:          req.Policy,
		CustomOrder:     req.CustomOrder,
		Metrics:         metrics,
	})
	if err != nil {
		return nil, err
	}
	order.TotalPositions = len(positions)

	tx, err := s.rotationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rotationRepo.Rollback(ctx, tx)

	active, err := s.rotationRepo.HasActiveRotationInTx(ctx, tx, chama.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active rotation: %w", err)
	}
	if active {
		return nil, apperrors.NewAppError(http.StatusConflict, "cannot create rotation", apperrors.ErrRotationAlreadyActive).With("chama_id", chama.ID)
	}

	if err := s.rotationRepo.CreateRotationInTx(ctx, tx, order, positions); err != nil {
		if errors.Is(err, apperrors.ErrRotationAlreadyActive) {
			return nil, apperrors.NewAppError(http.StatusConflict, "cannot create rotation", err).With("chama_id", chama.ID)
		}
		s.LogError(ctx, err, "Failed to save rotation", slog.String("chama_id", chama.ID))
		return nil, fmt.Errorf("failed to save rotation: %w", err)
	}

	expected := chama.ContributionAmount.Mul(decimal.NewFromInt(int64(len(positions))))
	cycle := domain.NewCycle(uuid.NewString(), order, 1, positions[0], expected, order.StartDate, now)
	if err := s.cycleRepo.CreateCycleInTx(ctx, tx, cycle); err != nil {
		s.LogError(ctx, err, "Failed to open first cycle", slog.String("rotation_order_id", order.ID))
		return nil, fmt.Errorf("failed to open first cycle: %w", err)
	}

	if err := s.rotationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit rotation: %w", err)
	}

	s.LogInfo(ctx, "Rotation created",
		slog.String("rotation_order_id", order.ID),
		slog.String("chama_id", chama.ID),
		slog.String("policy", string(order.Policy)),
		slog.Int("positions", order.TotalPositions),
		slog.String("cycle_id", cycle.ID))
	return &domain.RotationOverview{Order: order, Positions: positions}, nil
}

// SkipPosition marks a pending position skipped. The current position is not
// moved; an admin must swap instead.
func (s *rotationService) SkipPosition(ctx context.Context, positionID string, reason *string, actorID string) (*domain.RotationPosition, error) {
	tx, err := s.rotationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rotationRepo.Rollback(ctx, tx)

	_, positions, err := s.lockPositionOrder(ctx, tx, positionID)
	if err != nil {
		return nil, err
	}
	pos := findPosition(positions, positionID)

	switch pos.Status {
	case domain.PositionPending:
	case domain.PositionCompleted:
		return nil, apperrors.NewAppError(http.StatusConflict, "cannot skip position", apperrors.ErrPositionCompleted).
			With("id", pos.ID).With("state", string(pos.Status))
	case domain.PositionSkipped:
		return nil, apperrors.NewAppError(http.StatusConflict, "position already skipped", apperrors.ErrConflict).
			With("id", pos.ID).With("state", string(pos.Status))
	default:
		return nil, apperrors.NewInvalidStateError("rotation position", pos.ID, string(pos.Status), "skip")
	}

	pos.Status = domain.PositionSkipped
	pos.Note = reason
	pos.UpdatedAt = s.Now()
	if err := s.rotationRepo.UpdatePositionsInTx(ctx, tx, *pos); err != nil {
		return nil, fmt.Errorf("failed to update position: %w", err)
	}
	if err := s.rotationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit skip: %w", err)
	}

	s.LogInfo(ctx, "Rotation position skipped",
		slog.String("position_id", pos.ID),
		slog.String("member_id", pos.MemberID),
		slog.String("actor_id", actorID))
	return pos, nil
}

// SwapPositions exchanges the members of two positions of the same rotation.
// Statuses stay with the slots, so swapping into the current slot changes who is paid next.
func (s *rotationService) SwapPositions(ctx context.Context, positionA, positionB string, reason *string, actorID string) ([]domain.RotationPosition, error) {
	if positionA == positionB {
		return nil, fmt.Errorf("%w: cannot swap a position with itself", apperrors.ErrValidation)
	}

	tx, err := s.rotationRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rotationRepo.Rollback(ctx, tx)

	order, positions, err := s.lockPositionOrder(ctx, tx, positionA)
	if err != nil {
		return nil, err
	}
	a := findPosition(positions, positionA)
	b := findPosition(positions, positionB)
	if b == nil {
		return nil, fmt.Errorf("%w: positions belong to different rotations", apperrors.ErrValidation)
	}
	if order.Status != domain.RotationActive {
		return nil, apperrors.NewInvalidStateError("rotation", order.ID, string(order.Status), "swap positions of")
	}
	for _, p := range []*domain.RotationPosition{a, b} {
		if p.Status == domain.PositionCompleted {
			return nil, apperrors.NewAppError(http.StatusConflict, "cannot swap position", apperrors.ErrPositionCompleted).
				With("id", p.ID).With("state", string(p.Status))
		}
	}

	now := s.Now()
	a.MemberID, b.MemberID = b.MemberID, a.MemberID
	a.MeritScore, b.MeritScore = b.MeritScore, a.MeritScore
	a.Note, b.Note = reason, reason
	a.UpdatedAt, b.UpdatedAt = now, now

	if err := s.rotationRepo.UpdatePositionsInTx(ctx, tx, *a, *b); err != nil {
		return nil, fmt.Errorf("failed to update positions: %w", err)
	}
	if err := s.rotationRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit swap: %w", err)
	}

	s.LogInfo(ctx, "Rotation positions swapped",
		slog.String("position_a", a.ID),
		slog.String("position_b", b.ID),
		slog.String("actor_id", actorID))
	return []domain.RotationPosition{*a, *b}, nil
}

// AdvanceRotationInTx completes the paid position and opens the following cycle.
// When the paid position was current the next slot is promoted first; when no
// slot is left the rotation completes and no cycle is opened.
func (s *rotationService) AdvanceRotationInTx(ctx context.Context, tx pgx.Tx, positionID string, paidCycle domain.ContributionCycle, now time.Time) (*domain.ContributionCycle, error) {
	order, positions, err := s.lockPositionOrder(ctx, tx, positionID)
	if err != nil {
		return nil, err
	}
	paid := findPosition(positions, positionID)
	if paid.Status == domain.PositionCompleted {
		return nil, nil
	}

	wasCurrent := paid.Status == domain.PositionCurrent
	paid.Status = domain.PositionCompleted
	paid.CompletedAt = &now
	paid.UpdatedAt = now
	changed := []domain.RotationPosition{*paid}

	var recipient *domain.RotationPosition
	if wasCurrent {
		recipient = domain.NextPosition(positions, paid.Position, s.skippedPolicy)
		if recipient != nil {
			recipient.Status = domain.PositionCurrent
			recipient.UpdatedAt = now
			changed = append(changed, *recipient)
			order.CurrentPosition = recipient.Position
		}
	} else {
		recipient = domain.RotationOverview{Positions: positions}.Current()
	}

	if recipient == nil {
		order.Status = domain.RotationCompleted
		order.CompletedAt = &now
	}
	order.Touch(domain.SystemActor, now)

	if err := s.rotationRepo.UpdatePositionsInTx(ctx, tx, changed...); err != nil {
		return nil, fmt.Errorf("failed to update positions: %w", err)
	}
	if err := s.rotationRepo.UpdateRotationInTx(ctx, tx, *order); err != nil {
		return nil, fmt.Errorf("failed to update rotation: %w", err)
	}

	logger := s.GetLogger(ctx).With(slog.String("rotation_order_id", order.ID))
	if recipient == nil {
		logger.Info("Rotation completed", slog.String("last_position_id", paid.ID))
		return nil, nil
	}

	next := domain.NewCycle(uuid.NewString(), *order, paidCycle.CycleNumber+1, *recipient, paidCycle.ExpectedAmount, paidCycle.DueDate, now)
	if err := s.cycleRepo.CreateCycleInTx(ctx, tx, next); err != nil {
		return nil, fmt.Errorf("failed to open next cycle: %w", err)
	}

	logger.Info("Rotation advanced",
		slog.Int("current_position", order.CurrentPosition),
		slog.String("recipient_member_id", recipient.MemberID),
		slog.String("cycle_id", next.ID),
		slog.Int("cycle_number", next.CycleNumber))
	return &next, nil
}

// lockPositionOrder locks the rotation owning positionID and returns it with all of its positions.
func (s *rotationService) lockPositionOrder(ctx context.Context, tx pgx.Tx, positionID string) (*domain.RotationOrder, []domain.RotationPosition, error) {
	pos, err := s.rotationRepo.FindPositionInTx(ctx, tx, positionID)
	if err != nil {
		return nil, nil, err
	}
	order, positions, err := s.rotationRepo.LockRotationInTx(ctx, tx, pos.RotationOrderID)
	if err != nil {
		return nil, nil, err
	}
	if findPosition(positions, positionID) == nil {
		return nil, nil, apperrors.NewNotFoundError("rotation position", positionID)
	}
	return order, positions, nil
}

func findPosition(positions []domain.RotationPosition, id string) *domain.RotationPosition {
	for i := range positions {
		if positions[i].ID == id {
			return &positions[i]
		}
	}
	return nil
}

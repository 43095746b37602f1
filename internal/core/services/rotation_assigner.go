package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/utils"
	"github.com/google/uuid"
)

// MeritWeights parameterises the merit score. The defaults reproduce the
// scoring chamas have been ranked by so far; product may retune them.
type MeritWeights struct {
	OnTimeCap        float64
	OnTimeFactor     float64
	ActivityFactor   float64
	PenaltyFreeBonus float64
	PenaltyCost      float64
}

// DefaultMeritWeights returns min(40, onTime×40) + activity×0.3 + max(0, 30 − 5×penalties).
func DefaultMeritWeights() MeritWeights {
	return MeritWeights{
		OnTimeCap:        40,
		OnTimeFactor:     40,
		ActivityFactor:   0.3,
		PenaltyFreeBonus: 30,
		PenaltyCost:      5,
	}
}

// Score computes a member's merit score clamped to [0, 100].
func (w MeritWeights) Score(m domain.MemberMetrics) float64 {
	onTime := math.Min(w.OnTimeCap, m.OnTimeRate*w.OnTimeFactor)
	activity := m.ActivityScore * w.ActivityFactor
	penaltyFree := math.Max(0, w.PenaltyFreeBonus-w.PenaltyCost*float64(m.PendingPenaltyCount))
	return math.Max(0, math.Min(100, onTime+activity+penaltyFree))
}

// AssignmentInput is everything the assigner needs to order one rotation.
type AssignmentInput struct {
	RotationOrderID string
	// Members must be the chama's active members in join order.
	Members     []domain.Member
	Policy      domain.RotationPolicy
	CustomOrder []string
	Metrics     map[string]domain.MemberMetrics
}

// RotationAssigner turns a membership list and a policy into rotation positions.
// It has no side effects beyond drawing randomness.
type RotationAssigner struct {
	weights MeritWeights
	intn    func(int) (int, error)
	now     func() time.Time
}

// NewRotationAssigner creates an assigner using crypto/rand for the random policy.
func NewRotationAssigner(weights MeritWeights) *RotationAssigner {
	return &RotationAssigner{
		weights: weights,
		intn:    utils.SecureIntn,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AssignPositions orders members under the input policy. Position 1 is marked
// current and every other position pending.
func (a *RotationAssigner) AssignPositions(in AssignmentInput) ([]domain.RotationPosition, error) {
	if len(in.Members) == 0 {
		return nil, apperrors.ErrNoMembers
	}

	type slot struct {
		memberID string
		score    *float64
	}
	slots := make([]slot, len(in.Members))
	for i, m := range in.Members {
		slots[i] = slot{memberID: m.ID}
	}

	switch in.Policy {
	case domain.PolicySequential:
		// join order as given
	case domain.PolicyRandom:
		if err := utils.SecureShuffle(len(slots), a.intn, func(i, j int) { slots[i], slots[j] = slots[j], slots[i] }); err != nil {
			return nil, fmt.Errorf("shuffle rotation: %w", err)
		}
	case domain.PolicyMerit:
		for i := range slots {
			score := a.weights.Score(in.Metrics[slots[i].memberID])
			slots[i].score = &score
		}
		sort.SliceStable(slots, func(i, j int) bool {
			return *slots[i].score > *slots[j].score
		})
	case domain.PolicyCustom:
		if err := validateCustomOrder(in.Members, in.CustomOrder); err != nil {
			return nil, err
		}
		for i, memberID := range in.CustomOrder {
			slots[i] = slot{memberID: memberID}
		}
	default:
		return nil, fmt.Errorf("%w: unknown rotation policy %q", apperrors.ErrValidation, in.Policy)
	}

	now := a.now()
	positions := make([]domain.RotationPosition, len(slots))
	for i, s := range slots {
		status := domain.PositionPending
		if i == 0 {
			status = domain.PositionCurrent
		}
		positions[i] = domain.RotationPosition{
			ID:              uuid.NewString(),
			RotationOrderID: in.RotationOrderID,
			MemberID:        s.memberID,
			Position:        i + 1,
			Status:          status,
			MeritScore:      s.score,
			UpdatedAt:       now,
		}
	}
	return positions, nil
}

// validateCustomOrder requires order to be exactly the member set.
func validateCustomOrder(members []domain.Member, order []string) error {
	active := make(map[string]bool, len(members))
	for _, m := range members {
		active[m.ID] = true
	}

	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !active[id] {
			return fmt.Errorf("%w: member %s in custom order is not an active member", apperrors.ErrValidation, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: member %s appears more than once in custom order", apperrors.ErrValidation, id)
		}
		seen[id] = true
	}
	if len(seen) != len(active) {
		missing := make([]string, 0, len(active)-len(seen))
		for _, m := range members {
			if !seen[m.ID] {
				missing = append(missing, m.ID)
			}
		}
		return fmt.Errorf("%w: custom order is missing members %v", apperrors.ErrValidation, missing)
	}
	return nil
}

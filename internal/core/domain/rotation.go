package domain

import "time"

// RotationPolicy selects how members are assigned to payout positions.
type RotationPolicy string

const (
	PolicySequential RotationPolicy = "sequential"
	PolicyRandom     RotationPolicy = "random"
	PolicyMerit      RotationPolicy = "merit"
	PolicyCustom     RotationPolicy = "custom"
)

// IsValid reports whether p is a known policy.
func (p RotationPolicy) IsValid() bool {
	switch p {
	case PolicySequential, PolicyRandom, PolicyMerit, PolicyCustom:
		return true
	}
	return false
}

// RotationStatus is the lifecycle state of a rotation order.
type RotationStatus string

const (
	RotationActive    RotationStatus = "active"
	RotationCompleted RotationStatus = "completed"
)

// PositionStatus is the state of a single rotation slot.
type PositionStatus string

const (
	PositionPending   PositionStatus = "pending"
	PositionCurrent   PositionStatus = "current"
	PositionCompleted PositionStatus = "completed"
	PositionSkipped   PositionStatus = "skipped"
)

// SkippedPositionPolicy decides whether skipped slots get another turn once
// every pending slot has been paid.
type SkippedPositionPolicy string

const (
	// SkippedBypass never revisits a skipped slot.
	SkippedBypass SkippedPositionPolicy = "bypass"
	// SkippedRevisit promotes skipped slots, lowest position first, after the pending ones run out.
	SkippedRevisit SkippedPositionPolicy = "revisit"
)

// RotationOrder is the payout sequence for a chama. At most one is active per chama.
type RotationOrder struct {
	ID                  string         `json:"id"`
	ChamaID             string         `json:"chamaId"`
	Policy              RotationPolicy `json:"policy"`
	CycleDurationMonths int            `json:"cycleDurationMonths"`
	CurrentPosition     int            `json:"currentPosition"`
	TotalPositions      int            `json:"totalPositions"`
	Status              RotationStatus `json:"status"`
	StartDate           time.Time      `json:"startDate"`
	CompletedAt         *time.Time     `json:"completedAt,omitempty"`
	AuditFields
}

// RotationPosition is one slot of a rotation order.
type RotationPosition struct {
	ID              string         `json:"id"`
	RotationOrderID string         `json:"rotationOrderId"`
	MemberID        string         `json:"memberId"`
	Position        int            `json:"position"`
	Status          PositionStatus `json:"status"`
	MeritScore      *float64       `json:"meritScore,omitempty"`
	Note            *string        `json:"note,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// RotationOverview is an order together with all of its positions, ordered by position.
type RotationOverview struct {
	Order     RotationOrder      `json:"order"`
	Positions []RotationPosition `json:"positions"`
}

// Current returns the slot currently due to receive a payout, if any.
func (o RotationOverview) Current() *RotationPosition {
	for i := range o.Positions {
		if o.Positions[i].Status == PositionCurrent {
			return &o.Positions[i]
		}
	}
	return nil
}

// NextPosition picks the slot that becomes current after the slot numbered
// after is completed. Positions must be ordered by position number.
// It returns nil when the rotation has nothing left to pay.
func NextPosition(positions []RotationPosition, after int, policy SkippedPositionPolicy) *RotationPosition {
	for i := range positions {
		if positions[i].Position > after && positions[i].Status == PositionPending {
			return &positions[i]
		}
	}
	if policy == SkippedRevisit {
		for i := range positions {
			if positions[i].Status == PositionSkipped {
				return &positions[i]
			}
		}
	}
	return nil
}

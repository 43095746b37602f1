package dto

import (
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
)

// CreateRotationRequest defines the data needed to initialise a chama's rotation.
type CreateRotationRequest struct {
	ChamaID             string                `json:"chamaId" binding:"required,uuid"`
	Policy              domain.RotationPolicy `json:"policy" binding:"required,rotation_policy"`
	CycleDurationMonths int                   `json:"cycleDurationMonths" binding:"required,min=1,max=12"`
	StartDate           time.Time             `json:"startDate" binding:"required"`
	// CustomOrder lists member IDs in payout order; required for the custom policy only.
	CustomOrder []string `json:"customOrder,omitempty" binding:"omitempty,dive,uuid"`
}

// SkipPositionRequest optionally records why an admin skipped a position.
type SkipPositionRequest struct {
	Reason *string `json:"reason,omitempty" binding:"omitempty,max=500"`
}

// SwapPositionsRequest swaps the members of two positions of the same rotation.
type SwapPositionsRequest struct {
	PositionA string  `json:"positionA" binding:"required,uuid"`
	PositionB string  `json:"positionB" binding:"required,uuid,nefield=PositionA"`
	Reason    *string `json:"reason,omitempty" binding:"omitempty,max=500"`
}

// PositionResponse defines the data returned for a rotation position.
type PositionResponse struct {
	ID          string     `json:"id"`
	MemberID    string     `json:"memberId"`
	Position    int        `json:"position"`
	Status      string     `json:"status"`
	MeritScore  *float64   `json:"meritScore,omitempty"`
	Note        *string    `json:"note,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// RotationResponse defines the data returned for a rotation order.
type RotationResponse struct {
	ID                  string             `json:"id"`
	ChamaID             string             `json:"chamaId"`
	Policy              string             `json:"policy"`
	CycleDurationMonths int                `json:"cycleDurationMonths"`
	CurrentPosition     int                `json:"currentPosition"`
	TotalPositions      int                `json:"totalPositions"`
	Status              string             `json:"status"`
	StartDate           time.Time          `json:"startDate"`
	CompletedAt         *time.Time         `json:"completedAt,omitempty"`
	Positions           []PositionResponse `json:"positions,omitempty"`
}

// ToPositionResponse converts a domain.RotationPosition to PositionResponse DTO.
func ToPositionResponse(p *domain.RotationPosition) PositionResponse {
	return PositionResponse{
		ID:          p.ID,
		MemberID:    p.MemberID,
		Position:    p.Position,
		Status:      string(p.Status),
		MeritScore:  p.MeritScore,
		Note:        p.Note,
		CompletedAt: p.CompletedAt,
	}
}

// ToPositionResponses converts a slice of positions.
func ToPositionResponses(positions []domain.RotationPosition) []PositionResponse {
	res := make([]PositionResponse, len(positions))
	for i := range positions {
		res[i] = ToPositionResponse(&positions[i])
	}
	return res
}

// ToRotationResponse converts a domain.RotationOverview to RotationResponse DTO.
func ToRotationResponse(o *domain.RotationOverview) RotationResponse {
	return RotationResponse{
		ID:                  o.Order.ID,
		ChamaID:             o.Order.ChamaID,
		Policy:              string(o.Order.Policy),
		CycleDurationMonths: o.Order.CycleDurationMonths,
		CurrentPosition:     o.Order.CurrentPosition,
		TotalPositions:      o.Order.TotalPositions,
		Status:              string(o.Order.Status),
		StartDate:           o.Order.StartDate,
		CompletedAt:         o.Order.CompletedAt,
		Positions:           ToPositionResponses(o.Positions),
	}
}

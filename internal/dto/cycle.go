package dto

import (
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ContributeRequest defines a member's contribution to the chama's active cycle.
type ContributeRequest struct {
	ChamaID       string          `json:"chamaId" binding:"required,uuid"`
	MemberID      string          `json:"memberId" binding:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" binding:"required,gt=0"`
	PaymentMethod string          `json:"paymentMethod" binding:"required,max=32"`
	// IdempotencyKey is taken from the Idempotency-Key header when absent.
	IdempotencyKey string `json:"idempotencyKey,omitempty" binding:"omitempty,max=128"`
}

// CycleResponse defines the data returned for a contribution cycle.
type CycleResponse struct {
	ID                        string          `json:"id"`
	ChamaID                   string          `json:"chamaId"`
	RotationOrderID           string          `json:"rotationOrderId"`
	CycleNumber               int             `json:"cycleNumber"`
	ExpectedAmount            decimal.Decimal `json:"expectedAmount"`
	CollectedAmount           decimal.Decimal `json:"collectedAmount"`
	StartDate                 time.Time       `json:"startDate"`
	DueDate                   time.Time       `json:"dueDate"`
	PayoutRecipientPositionID *string         `json:"payoutRecipientPositionId,omitempty"`
	Status                    string          `json:"status"`
	CompletedAt               *time.Time      `json:"completedAt,omitempty"`
	PayoutExecutedAt          *time.Time      `json:"payoutExecutedAt,omitempty"`
}

// ContributionResponse defines the data returned for a contribution.
type ContributionResponse struct {
	ID            string          `json:"id"`
	CycleID       string          `json:"cycleId"`
	MemberID      string          `json:"memberId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	TransactionID *string         `json:"transactionId,omitempty"`
	Reference     string          `json:"reference"`
	ContributedAt time.Time       `json:"contributedAt"`
}

// ToCycleResponse converts a domain.ContributionCycle to CycleResponse DTO.
func ToCycleResponse(c *domain.ContributionCycle) CycleResponse {
	return CycleResponse{
		ID:                        c.ID,
		ChamaID:                   c.ChamaID,
		RotationOrderID:           c.RotationOrderID,
		CycleNumber:               c.CycleNumber,
		ExpectedAmount:            c.ExpectedAmount,
		CollectedAmount:           c.CollectedAmount,
		StartDate:                 c.StartDate,
		DueDate:                   c.DueDate,
		PayoutRecipientPositionID: c.PayoutRecipientPositionID,
		Status:                    string(c.Status),
		CompletedAt:               c.CompletedAt,
		PayoutExecutedAt:          c.PayoutExecutedAt,
	}
}

// ToContributionResponse converts a domain.Contribution to ContributionResponse DTO.
func ToContributionResponse(c *domain.Contribution) ContributionResponse {
	return ContributionResponse{
		ID:            c.ID,
		CycleID:       c.CycleID,
		MemberID:      c.MemberID,
		Amount:        c.Amount,
		Status:        string(c.Status),
		TransactionID: c.TransactionID,
		Reference:     c.Reference,
		ContributedAt: c.ContributedAt,
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleStatus is the lifecycle state of a contribution cycle.
type CycleStatus string

const (
	CycleActive    CycleStatus = "active"
	CycleCompleted CycleStatus = "completed"
)

// ContributionCycle is one collection period ending in a single payout.
type ContributionCycle struct {
	ID                        string          `json:"id"`
	ChamaID                   string          `json:"chamaId"`
	RotationOrderID           string          `json:"rotationOrderId"`
	CycleNumber               int             `json:"cycleNumber"`
	ExpectedAmount            decimal.Decimal `json:"expectedAmount"`
	CollectedAmount           decimal.Decimal `json:"collectedAmount"`
	StartDate                 time.Time       `json:"startDate"`
	DueDate                   time.Time       `json:"dueDate"`
	PayoutRecipientPositionID *string         `json:"payoutRecipientPositionId,omitempty"`
	Status                    CycleStatus     `json:"status"`
	CompletedAt               *time.Time      `json:"completedAt,omitempty"`
	PayoutExecutedAt          *time.Time      `json:"payoutExecutedAt,omitempty"`
	CreatedAt                 time.Time       `json:"createdAt"`
}

// IsCompleted reports whether contributions for the cycle are closed.
func (c ContributionCycle) IsCompleted() bool {
	return c.Status == CycleCompleted
}

// NewCycle builds the cycle that pays the given position, starting at start
// and lasting durationMonths.
func NewCycle(id string, order RotationOrder, number int, position RotationPosition, expected decimal.Decimal, start time.Time, now time.Time) ContributionCycle {
	positionID := position.ID
	return ContributionCycle{
		ID:                        id,
		ChamaID:                   order.ChamaID,
		RotationOrderID:           order.ID,
		CycleNumber:               number,
		ExpectedAmount:            expected,
		CollectedAmount:           decimal.Zero,
		StartDate:                 start,
		DueDate:                   AddMonthsClamped(start, order.CycleDurationMonths),
		PayoutRecipientPositionID: &positionID,
		Status:                    CycleActive,
		CreatedAt:                 now,
	}
}

// ContributionStatus is the state of a single member contribution.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionCompleted ContributionStatus = "completed"
	ContributionFailed    ContributionStatus = "failed"
)

// Contribution is a member's payment into a cycle.
type Contribution struct {
	ID            string             `json:"id"`
	CycleID       string             `json:"cycleId"`
	ChamaID       string             `json:"chamaId"`
	MemberID      string             `json:"memberId"`
	Amount        decimal.Decimal    `json:"amount"`
	Status        ContributionStatus `json:"status"`
	TransactionID *string            `json:"transactionId,omitempty"`
	PaymentMethod string             `json:"paymentMethod"`
	Reference     string             `json:"reference"`
	ContributedAt time.Time          `json:"contributedAt"`
}

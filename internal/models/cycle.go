package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionCycle is a row of the contribution_cycles table.
type ContributionCycle struct {
	CycleID                   string          `db:"cycle_id"`
	ChamaID                   string          `db:"chama_id"`
	RotationOrderID           string          `db:"rotation_order_id"`
	CycleNumber               int             `db:"cycle_number"`
	ExpectedAmount            decimal.Decimal `db:"expected_amount"`
	CollectedAmount           decimal.Decimal `db:"collected_amount"`
	StartDate                 time.Time       `db:"start_date"`
	DueDate                   time.Time       `db:"due_date"`
	PayoutRecipientPositionID *string         `db:"payout_recipient_position_id"`
	Status                    string          `db:"status"`
	CompletedAt               *time.Time      `db:"completed_at"`
	PayoutExecutedAt          *time.Time      `db:"payout_executed_at"`
	CreatedAt                 time.Time       `db:"created_at"`
}

// Contribution is a row of the contributions table.
type Contribution struct {
	ContributionID string          `db:"contribution_id"`
	CycleID        string          `db:"cycle_id"`
	ChamaID        string          `db:"chama_id"`
	MemberID       string          `db:"member_id"`
	Amount         decimal.Decimal `db:"amount"`
	Status         string          `db:"status"`
	TransactionID  *string         `db:"transaction_id"`
	PaymentMethod  string          `db:"payment_method"`
	Reference      string          `db:"reference"`
	ContributedAt  time.Time       `db:"contributed_at"`
}

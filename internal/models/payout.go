package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout is a row of the payouts table.
type Payout struct {
	PayoutID           string          `db:"payout_id"`
	ChamaID            string          `db:"chama_id"`
	CycleID            string          `db:"cycle_id"`
	RecipientMemberID  string          `db:"recipient_member_id"`
	Amount             decimal.Decimal `db:"amount"`
	Status             string          `db:"status"`
	ScheduledAt        time.Time       `db:"scheduled_at"`
	ExecutedAt         *time.Time      `db:"executed_at"`
	TransactionID      *string         `db:"transaction_id"`
	ExternalReference  *string         `db:"external_reference"`
	RetryCount         int             `db:"retry_count"`
	FailedReason       *string         `db:"failed_reason"`
	LastFailedAt       *time.Time      `db:"last_failed_at"`
	CancelledReason    *string         `db:"cancelled_reason"`
	RotationPositionID *string         `db:"rotation_position_id"`
	AuditFields
}

// PayoutDistribution is a row of the payout_distributions table.
type PayoutDistribution struct {
	DistributionID string          `db:"distribution_id"`
	PayoutID       string          `db:"payout_id"`
	ContributionID string          `db:"contribution_id"`
	Amount         decimal.Decimal `db:"amount"`
	CreatedAt      time.Time       `db:"created_at"`
}

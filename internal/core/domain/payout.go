package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the state of a payout in its state machine.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
	PayoutCancelled  PayoutStatus = "cancelled"
)

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending:    {PayoutProcessing, PayoutCancelled},
	PayoutProcessing: {PayoutCompleted, PayoutFailed},
	PayoutFailed:     {PayoutPending, PayoutCancelled},
}

// IsValid reports whether s is a known payout status.
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutPending, PayoutProcessing, PayoutCompleted, PayoutFailed, PayoutCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	for _, allowed := range payoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payout moves a cycle's pooled funds to its recipient. Payouts are never deleted.
type Payout struct {
	ID                 string          `json:"id"`
	ChamaID            string          `json:"chamaId"`
	CycleID            string          `json:"cycleId"`
	RecipientMemberID  string          `json:"recipientMemberId"`
	Amount             decimal.Decimal `json:"amount"`
	Status             PayoutStatus    `json:"status"`
	ScheduledAt        time.Time       `json:"scheduledAt"`
	ExecutedAt         *time.Time      `json:"executedAt,omitempty"`
	TransactionID      *string         `json:"transactionId,omitempty"`
	ExternalReference  *string         `json:"externalReference,omitempty"`
	RetryCount         int             `json:"retryCount"`
	FailedReason       *string         `json:"failedReason,omitempty"`
	LastFailedAt       *time.Time      `json:"lastFailedAt,omitempty"`
	CancelledReason    *string         `json:"cancelledReason,omitempty"`
	RotationPositionID *string         `json:"rotationPositionId,omitempty"`
	AuditFields
}

// PayoutExternalReference derives the ledger reference for one execution attempt.
func PayoutExternalReference(payoutID string, attemptedAt time.Time) string {
	return fmt.Sprintf("payout-%s-%d", payoutID, attemptedAt.UnixMilli())
}

// PayoutDistribution links a payout to one contribution that funded it.
type PayoutDistribution struct {
	ID             string          `json:"id"`
	PayoutID       string          `json:"payoutId"`
	ContributionID string          `json:"contributionId"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// PayoutFilter narrows payout history queries. Nil fields are ignored.
type PayoutFilter struct {
	ChamaID           *string
	CycleID           *string
	RecipientMemberID *string
	Status            *PayoutStatus
}

// PayoutPage is one page of payout history.
type PayoutPage struct {
	Payouts []Payout `json:"payouts"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Total   int      `json:"total"`
}

package services

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerContribution is a member-to-chama money movement.
type LedgerContribution struct {
	UserID    string
	ChamaID   string
	Amount    decimal.Decimal
	Reference string
	Memo      string
}

// LedgerPayout is a chama-to-member money movement.
type LedgerPayout struct {
	ChamaID           string
	RecipientUserID   string
	Amount            decimal.Decimal
	Memo              string
	ExternalReference string
}

// LedgerResult is the ledger's receipt for a posted transaction.
type LedgerResult struct {
	TransactionID string `json:"transactionId"`
}

// LedgerGateway is the double-entry ledger's transaction API.
// Calls are idempotent keyed by reference / external reference.
type LedgerGateway interface {
	ProcessContribution(ctx context.Context, req LedgerContribution) (*LedgerResult, error)
	ProcessPayout(ctx context.Context, req LedgerPayout) (*LedgerResult, error)
	GetChamaBalance(ctx context.Context, chamaID string) (decimal.Decimal, error)
}

// NotificationGateway delivers SMS and email. Callers treat it as fire-and-forget.
type NotificationGateway interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendEmail(ctx context.Context, to, subject, html string) error
}

// IdempotencyStore is a TTL-backed key to result cache.
type IdempotencyStore interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key for ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// JobPublisher hands typed jobs to the worker pool.
type JobPublisher interface {
	Publish(ctx context.Context, job domain.Job) error
}

// ReminderCanceller cancels outstanding reminders once a member has paid.
type ReminderCanceller interface {
	CancelReminders(ctx context.Context, cycleID, memberID string) error
}

// RotationAdvancer moves a rotation past a paid position inside the caller's transaction.
type RotationAdvancer interface {
	// AdvanceRotationInTx completes positionID and promotes the next slot,
	// opening its cycle after paidCycle. It returns the new cycle, or nil when
	// the rotation finished or the position was already completed.
	AdvanceRotationInTx(ctx context.Context, tx pgx.Tx, positionID string, paidCycle domain.ContributionCycle, now time.Time) (*domain.ContributionCycle, error)
}

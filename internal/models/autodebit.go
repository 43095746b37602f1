package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutoDebit is a row of the auto_debits table.
type AutoDebit struct {
	AutoDebitID         string              `db:"auto_debit_id"`
	ChamaID             string              `db:"chama_id"`
	MemberID            string              `db:"member_id"`
	Enabled             bool                `db:"enabled"`
	PaymentMethod       string              `db:"payment_method"`
	AmountType          string              `db:"amount_type"`
	FixedAmount         decimal.NullDecimal `db:"fixed_amount"`
	AutoDebitDay        int                 `db:"auto_debit_day"`
	NextExecutionAt     time.Time           `db:"next_execution_at"`
	LastExecutionAt     *time.Time          `db:"last_execution_at"`
	LastExecutionStatus string              `db:"last_execution_status"`
	LastFailedReason    *string             `db:"last_failed_reason"`
	RetryCount          int                 `db:"retry_count"`
	ClaimedUntil        *time.Time          `db:"claimed_until"`
	CreatedAt           time.Time           `db:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at"`
}

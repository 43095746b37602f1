package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AmountType decides how much an auto-debit collects.
type AmountType string

const (
	AmountFixed       AmountType = "fixed"
	AmountCycleAmount AmountType = "cycle_amount"
)

func (t AmountType) IsValid() bool {
	return t == AmountFixed || t == AmountCycleAmount
}

// ExecutionStatus is the outcome of the most recent auto-debit attempt.
type ExecutionStatus string

const (
	ExecutionNone    ExecutionStatus = ""
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionSkipped ExecutionStatus = "skipped"
	ExecutionFailed  ExecutionStatus = "failed"
)

var ErrFixedAmountMissing = errors.New("fixed auto-debit has no positive amount")

// AutoDebitConfig is a member's standing instruction to contribute every cycle.
type AutoDebitConfig struct {
	ID                  string           `json:"id"`
	ChamaID             string           `json:"chamaId"`
	MemberID            string           `json:"memberId"`
	Enabled             bool             `json:"enabled"`
	PaymentMethod       string           `json:"paymentMethod"`
	AmountType          AmountType       `json:"amountType"`
	FixedAmount         *decimal.Decimal `json:"fixedAmount,omitempty"`
	AutoDebitDay        int              `json:"autoDebitDay"`
	NextExecutionAt     time.Time        `json:"nextExecutionAt"`
	LastExecutionAt     *time.Time       `json:"lastExecutionAt,omitempty"`
	LastExecutionStatus ExecutionStatus  `json:"lastExecutionStatus"`
	LastFailedReason    *string          `json:"lastFailedReason,omitempty"`
	RetryCount          int              `json:"retryCount"`
	ClaimedUntil        *time.Time       `json:"-"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// ResolveAmount returns the amount to debit for a cycle expecting cycleAmount per member.
func (c AutoDebitConfig) ResolveAmount(cycleAmount decimal.Decimal) (decimal.Decimal, error) {
	if c.AmountType == AmountFixed {
		if c.FixedAmount == nil || !c.FixedAmount.IsPositive() {
			return decimal.Zero, ErrFixedAmountMissing
		}
		return *c.FixedAmount, nil
	}
	return cycleAmount, nil
}

// RecordSuccess reschedules the debit for next month and resets the breaker.
func (c *AutoDebitConfig) RecordSuccess(status ExecutionStatus, now time.Time) {
	c.LastExecutionAt = &now
	c.LastExecutionStatus = status
	c.LastFailedReason = nil
	c.RetryCount = 0
	c.NextExecutionAt = NextExecutionDate(c.AutoDebitDay, now)
	c.ClaimedUntil = nil
	c.UpdatedAt = now
}

// RecordFailure counts a failed attempt without advancing the schedule and
// disables the debit once policy is exhausted. It reports whether the breaker tripped.
func (c *AutoDebitConfig) RecordFailure(reason string, policy RetryPolicy, now time.Time) bool {
	c.LastExecutionAt = &now
	c.LastExecutionStatus = ExecutionFailed
	c.LastFailedReason = &reason
	c.RetryCount++
	c.ClaimedUntil = nil
	c.UpdatedAt = now
	if policy.Exhausted(c.RetryCount) {
		c.Enabled = false
		return true
	}
	return false
}

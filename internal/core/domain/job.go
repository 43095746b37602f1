package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobKind names a unit of queued side-effecting work.
type JobKind string

const (
	JobPayoutTrigger    JobKind = "payout.trigger"
	JobPayoutExecute    JobKind = "payout.execute"
	JobPayoutRetry      JobKind = "payout.retry"
	JobAutoDebitExecute JobKind = "autodebit.execute"
)

// Job is a typed message passed from producers to the worker pool.
type Job struct {
	ID             string          `json:"id"`
	Kind           JobKind         `json:"kind"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Payload        json.RawMessage `json:"payload"`
	EnqueuedAt     time.Time       `json:"enqueuedAt"`
}

// PayoutTriggerPayload asks the worker to schedule and execute a completed cycle's payout.
type PayoutTriggerPayload struct {
	CycleID string `json:"cycleId"`
}

// PayoutPayload identifies a payout to execute or retry.
type PayoutPayload struct {
	PayoutID string `json:"payoutId"`
}

// AutoDebitPayload identifies an auto-debit config to run.
type AutoDebitPayload struct {
	ConfigID string `json:"configId"`
}

// NewJob encodes payload and stamps the job with a fresh ID.
func NewJob(id string, kind JobKind, idempotencyKey string, payload any, now time.Time) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Job{
		ID:             id,
		Kind:           kind,
		IdempotencyKey: idempotencyKey,
		Payload:        raw,
		EnqueuedAt:     now,
	}, nil
}

// PayoutTriggerKey guards the single payout trigger of a completed cycle.
func PayoutTriggerKey(cycleID string) string {
	return "payout-trigger:" + cycleID
}

// PayoutAttemptKey guards one execution attempt of a payout. A retry after a
// recorded failure carries a higher retry count and therefore a new key.
func PayoutAttemptKey(payoutID string, retryCount int) string {
	return fmt.Sprintf("payout:%s:attempt:%d", payoutID, retryCount)
}

// AutoDebitRunKey guards one scheduled run of an auto-debit config.
func AutoDebitRunKey(configID string, due time.Time) string {
	return fmt.Sprintf("autodebit:%s:%s", configID, due.UTC().Format("2006-01-02"))
}

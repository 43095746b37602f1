package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
)

// NewHandlers binds every job kind to its service call.
func NewHandlers(svc *portssvc.ServiceContainer) map[domain.JobKind]Handler {
	return map[domain.JobKind]Handler{
		domain.JobPayoutTrigger: func(ctx context.Context, job domain.Job) (any, error) {
			var p domain.PayoutTriggerPayload
			if err := json.Unmarshal(job.Payload, &p); err != nil || p.CycleID == "" {
				return nil, badPayload(job, err)
			}
			return svc.Payout.TriggerCyclePayout(ctx, p.CycleID)
		},
		domain.JobPayoutExecute: func(ctx context.Context, job domain.Job) (any, error) {
			id, err := payoutID(job)
			if err != nil {
				return nil, err
			}
			return svc.Payout.ExecutePayout(ctx, id)
		},
		domain.JobPayoutRetry: func(ctx context.Context, job domain.Job) (any, error) {
			id, err := payoutID(job)
			if err != nil {
				return nil, err
			}
			return svc.Payout.RetryFailedPayout(ctx, id, false)
		},
		domain.JobAutoDebitExecute: func(ctx context.Context, job domain.Job) (any, error) {
			var p domain.AutoDebitPayload
			if err := json.Unmarshal(job.Payload, &p); err != nil || p.ConfigID == "" {
				return nil, badPayload(job, err)
			}
			return svc.AutoDebit.ExecuteAutoDebit(ctx, p.ConfigID)
		},
	}
}

func payoutID(job domain.Job) (string, error) {
	var p domain.PayoutPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.PayoutID == "" {
		return "", badPayload(job, err)
	}
	return p.PayoutID, nil
}

func badPayload(job domain.Job, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s job %s is missing its id", ErrBadPayload, job.Kind, job.ID)
	}
	return fmt.Errorf("%w: %s job %s: %w", ErrBadPayload, job.Kind, job.ID, err)
}

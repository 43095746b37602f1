// Package scheduler drives the recurring sweeps over due and failed work.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/jobs"
	"github.com/amkoya-stack/cycles-sub000/internal/metrics"
	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
	"github.com/amkoya-stack/cycles-sub000/internal/platform/config"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Sweep names, also used as the `job` log field and metric label.
const (
	SweepAutoDebit        = "autodebit"
	SweepPayoutRetry      = "payout-retry"
	SweepScheduledPayouts = "scheduled-payouts"
	SweepReminders        = "reminders"
)

// Names lists every sweep in registration order.
var Names = []string{SweepAutoDebit, SweepPayoutRetry, SweepScheduledPayouts, SweepReminders}

// Summary counts what a sweep run did.
type Summary struct {
	Claimed   int
	Succeeded int
	Failed    int
	Skipped   int
	Scheduled int
}

// Dispatcher runs a job behind the idempotency guard.
type Dispatcher interface {
	Dispatch(ctx context.Context, job domain.Job) (string, error)
}

var _ Dispatcher = (*jobs.Dispatcher)(nil)

type item struct {
	id      string
	attempt int
	run     func(ctx context.Context) (string, error)
}

// Runner claims due rows and works them item by item. A failing item is
// logged and counted; it never stops the rest of the batch.
type Runner struct {
	svc        *portssvc.ServiceContainer
	dispatcher Dispatcher
	sweep      config.SweepConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewRunner(svc *portssvc.ServiceContainer, dispatcher Dispatcher, sweep config.SweepConfig, m *metrics.Metrics, logger *slog.Logger) *Runner {
	if sweep.BatchSize < 1 {
		sweep.BatchSize = 200
	}
	if sweep.Parallelism < 1 {
		sweep.Parallelism = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		svc:        svc,
		dispatcher: dispatcher,
		sweep:      sweep,
		metrics:    m,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the named sweep once.
func (r *Runner) Run(ctx context.Context, name string) (Summary, error) {
	var sweep func(context.Context, time.Time) (Summary, error)
	switch name {
	case SweepAutoDebit:
		sweep = r.autoDebits
	case SweepPayoutRetry:
		sweep = r.payoutRetries
	case SweepScheduledPayouts:
		sweep = r.scheduledPayouts
	case SweepReminders:
		sweep = r.reminders
	default:
		return Summary{}, fmt.Errorf("unknown sweep %q", name)
	}

	logger := r.logger.With(slog.String("job", name), slog.String("run_id", uuid.NewString()))
	ctx = middleware.WithLogger(ctx, logger)
	start := time.Now()
	logger.Info("Sweep started")

	summary, err := sweep(ctx, r.now())
	took := time.Since(start)
	r.metrics.ObserveSweep(name, took, err)
	if err != nil {
		logger.Error("Sweep failed", slog.String("error", err.Error()), slog.Duration("duration", took))
		return summary, err
	}
	logger.Info("Sweep finished",
		slog.Int("claimed", summary.Claimed),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("duration", took))
	return summary, nil
}

func (r *Runner) autoDebits(ctx context.Context, now time.Time) (Summary, error) {
	due, err := r.svc.AutoDebit.ClaimDueAutoDebits(ctx, now, r.sweep.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to claim due auto-debits: %w", err)
	}
	items := make([]item, 0, len(due))
	for _, cfg := range due {
		job, err := domain.NewJob(uuid.NewString(), domain.JobAutoDebitExecute, domain.AutoDebitRunKey(cfg.ID, cfg.NextExecutionAt),
			domain.AutoDebitPayload{ConfigID: cfg.ID}, now)
		if err != nil {
			return Summary{}, err
		}
		items = append(items, r.dispatchItem(cfg.ID, cfg.RetryCount+1, job))
	}
	return r.runBatch(ctx, SweepAutoDebit, items), nil
}

func (r *Runner) payoutRetries(ctx context.Context, now time.Time) (Summary, error) {
	failed, err := r.svc.Payout.ClaimRetryablePayouts(ctx, now, r.sweep.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to claim retryable payouts: %w", err)
	}
	return r.payoutBatch(ctx, SweepPayoutRetry, domain.JobPayoutRetry, failed, now)
}

func (r *Runner) scheduledPayouts(ctx context.Context, now time.Time) (Summary, error) {
	due, err := r.svc.Payout.ClaimDuePayouts(ctx, now, r.sweep.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to claim due payouts: %w", err)
	}
	return r.payoutBatch(ctx, SweepScheduledPayouts, domain.JobPayoutExecute, due, now)
}

func (r *Runner) payoutBatch(ctx context.Context, name string, kind domain.JobKind, payouts []domain.Payout, now time.Time) (Summary, error) {
	items := make([]item, 0, len(payouts))
	for _, p := range payouts {
		job, err := domain.NewJob(uuid.NewString(), kind, domain.PayoutAttemptKey(p.ID, p.RetryCount),
			domain.PayoutPayload{PayoutID: p.ID}, now)
		if err != nil {
			return Summary{}, err
		}
		items = append(items, r.dispatchItem(p.ID, p.RetryCount+1, job))
	}
	return r.runBatch(ctx, name, items), nil
}

func (r *Runner) reminders(ctx context.Context, now time.Time) (Summary, error) {
	created, err := r.svc.Reminder.ScheduleReminders(ctx, now)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to schedule reminders: %w", err)
	}
	due, err := r.svc.Reminder.ClaimDueReminders(ctx, now, r.sweep.BatchSize)
	if err != nil {
		return Summary{Scheduled: created}, fmt.Errorf("failed to claim due reminders: %w", err)
	}
	items := make([]item, 0, len(due))
	for _, reminder := range due {
		items = append(items, item{
			id:      reminder.ID,
			attempt: reminder.Attempts + 1,
			run: func(ctx context.Context) (string, error) {
				if err := r.svc.Reminder.SendReminder(ctx, reminder); err != nil {
					return metrics.OutcomeFailed, err
				}
				return metrics.OutcomeSuccess, nil
			},
		})
	}
	summary := r.runBatch(ctx, SweepReminders, items)
	summary.Scheduled = created
	return summary, nil
}

func (r *Runner) dispatchItem(id string, attempt int, job domain.Job) item {
	return item{
		id:      id,
		attempt: attempt,
		run: func(ctx context.Context) (string, error) {
			return r.dispatcher.Dispatch(ctx, job)
		},
	}
}

// runBatch works items in claim order, at most Parallelism at a time.
func (r *Runner) runBatch(ctx context.Context, name string, items []item) Summary {
	summary := Summary{Claimed: len(items)}
	if len(items) == 0 {
		return summary
	}
	logger := middleware.GetLoggerFromCtx(ctx)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.sweep.Parallelism)
	for i, it := range items {
		if ctx.Err() != nil {
			logger.Warn("Sweep interrupted", slog.Int("remaining", len(items)-i))
			break
		}
		g.Go(func() error {
			itemLogger := logger.With(slog.String("item_id", it.id), slog.Int("attempt", it.attempt))
			start := time.Now()
			outcome, err := it.run(middleware.WithLogger(ctx, itemLogger))
			took := time.Since(start)

			label := outcome
			switch {
			case err != nil:
				label = metrics.OutcomeFailed
				itemLogger.Error("Sweep item failed", slog.Duration("duration", took), slog.String("error", err.Error()))
			case outcome == metrics.OutcomeDuplicate || outcome == metrics.OutcomeInFlight:
				label = metrics.OutcomeSkipped
				itemLogger.Info("Sweep item skipped", slog.String("reason", outcome), slog.Duration("duration", took))
			default:
				label = metrics.OutcomeSuccess
				itemLogger.Info("Sweep item processed", slog.Duration("duration", took))
			}
			r.metrics.SweepItem(name, label)

			mu.Lock()
			defer mu.Unlock()
			switch label {
			case metrics.OutcomeFailed:
				summary.Failed++
			case metrics.OutcomeSkipped:
				summary.Skipped++
			default:
				summary.Succeeded++
			}
			return nil
		})
	}
	_ = g.Wait()
	return summary
}

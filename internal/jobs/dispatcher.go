// Package jobs runs queued engine work behind an idempotency guard.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/idempotency"
	"github.com/amkoya-stack/cycles-sub000/internal/metrics"
	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
)

// Handler performs one job and returns a JSON-encodable result.
type Handler func(ctx context.Context, job domain.Job) (any, error)

var (
	// ErrUnknownKind is returned for jobs no handler is registered for.
	ErrUnknownKind = errors.New("unknown job kind")
	// ErrBadPayload is returned when a job payload cannot be decoded.
	ErrBadPayload = errors.New("malformed job payload")
)

const defaultReserveLease = 5 * time.Minute

// Dispatcher routes jobs to handlers. A key that already holds a result is
// skipped, and a key reserved by another worker is left to that worker.
type Dispatcher struct {
	handlers map[domain.JobKind]Handler
	store    idempotency.Store
	ttl      time.Duration
	lease    time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithResultTTL sets how long a successful result is remembered.
func WithResultTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithReserveLease sets how long a worker holds a key while it runs the job.
func WithReserveLease(lease time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if lease > 0 {
			d.lease = lease
		}
	}
}

// WithMetrics records job outcomes.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(store idempotency.Store, handlers map[domain.JobKind]Handler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: handlers,
		store:    store,
		ttl:      domain.DefaultIdempotencyTTL,
		lease:    defaultReserveLease,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs job at most once per idempotency key and reports the outcome
// label. Handler errors are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, job domain.Job) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)))
	ctx = middleware.WithLogger(ctx, logger)
	start := d.now()

	handler, ok := d.handlers[job.Kind]
	if !ok {
		d.metrics.Job(string(job.Kind), metrics.OutcomeSkipped, 0)
		return metrics.OutcomeSkipped, fmt.Errorf("%w: %s", ErrUnknownKind, job.Kind)
	}

	key := job.IdempotencyKey
	if key == "" {
		key = "job:" + job.ID
	}

	if _, found, err := d.store.Get(ctx, key); err != nil {
		return metrics.OutcomeFailed, fmt.Errorf("failed to read idempotency key %s: %w", key, err)
	} else if found {
		logger.Info("Job already processed", slog.String("idempotency_key", key))
		d.metrics.Job(string(job.Kind), metrics.OutcomeDuplicate, 0)
		return metrics.OutcomeDuplicate, nil
	}

	reserved, err := d.store.Reserve(ctx, key, d.lease)
	if err != nil {
		return metrics.OutcomeFailed, fmt.Errorf("failed to reserve idempotency key %s: %w", key, err)
	}
	if !reserved {
		logger.Info("Job in flight elsewhere", slog.String("idempotency_key", key))
		d.metrics.Job(string(job.Kind), metrics.OutcomeInFlight, 0)
		return metrics.OutcomeInFlight, nil
	}
	defer func() {
		if err := d.store.Release(context.WithoutCancel(ctx), key); err != nil {
			logger.Warn("Failed to release idempotency key", slog.String("idempotency_key", key), slog.String("error", err.Error()))
		}
	}()

	result, err := handler(ctx, job)
	took := d.now().Sub(start)
	if err != nil {
		logger.Error("Job failed", slog.String("error", err.Error()), slog.Duration("duration", took))
		d.metrics.Job(string(job.Kind), metrics.OutcomeFailed, took)
		return metrics.OutcomeFailed, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		logger.Warn("Failed to encode job result", slog.String("error", err.Error()))
		encoded = []byte("null")
	}
	if err := d.store.Put(ctx, key, encoded, d.ttl); err != nil {
		logger.Warn("Failed to store idempotency key", slog.String("idempotency_key", key), slog.String("error", err.Error()))
	}
	logger.Info("Job completed", slog.Duration("duration", took))
	d.metrics.Job(string(job.Kind), metrics.OutcomeSuccess, took)
	return metrics.OutcomeSuccess, nil
}

// Retryable reports whether a failed job should go back on the queue.
// Business failures are already recorded on their rows and are picked up by
// the sweeps instead. Upstream failures are retried unless the payout breaker
// has tripped.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, final := range []error{
		ErrUnknownKind,
		ErrBadPayload,
		apperrors.ErrValidation,
		apperrors.ErrNotFound,
		apperrors.ErrDuplicate,
		apperrors.ErrConflict,
		apperrors.ErrInvalidState,
		apperrors.ErrInsufficientFunds,
		apperrors.ErrMaxRetriesExceeded,
	} {
		if errors.Is(err, final) {
			return false
		}
	}
	return true
}

package jobs

import (
	"context"
	"log/slog"

	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
	"golang.org/x/sync/errgroup"
)

// Pool runs a fixed number of workers over a Source.
type Pool struct {
	source      Source
	dispatcher  *Dispatcher
	concurrency int
	logger      *slog.Logger
}

func NewPool(source Source, dispatcher *Dispatcher, concurrency int, logger *slog.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{source: source, dispatcher: dispatcher, concurrency: concurrency, logger: logger}
}

// Run blocks until ctx is done or the source closes. A job already being
// handled when ctx is cancelled runs to completion.
func (p *Pool) Run(ctx context.Context) error {
	deliveries, err := p.source.Deliveries(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("Job workers started", slog.Int("concurrency", p.concurrency))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						return nil
					}
					p.handle(context.WithoutCancel(gctx), worker, d)
				}
			}
		})
	}
	err = g.Wait()
	p.logger.Info("Job workers stopped")
	return err
}

func (p *Pool) handle(ctx context.Context, worker int, d Delivery) {
	logger := p.logger.With(slog.Int("worker", worker), slog.Int("attempt", d.Attempt))
	_, err := p.dispatcher.Dispatch(middleware.WithLogger(ctx, logger), d.Job)
	if err != nil && Retryable(err) {
		if nackErr := d.Nack(true); nackErr != nil {
			logger.Error("Failed to requeue job", slog.String("job_id", d.Job.ID), slog.String("error", nackErr.Error()))
		}
		return
	}
	if ackErr := d.Ack(); ackErr != nil {
		logger.Error("Failed to ack job", slog.String("job_id", d.Job.ID), slog.String("error", ackErr.Error()))
	}
}

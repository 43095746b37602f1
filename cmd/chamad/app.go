package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/adapters/httpclient"
	"github.com/amkoya-stack/cycles-sub000/internal/adapters/ledger"
	"github.com/amkoya-stack/cycles-sub000/internal/adapters/notification"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/core/services"
	"github.com/amkoya-stack/cycles-sub000/internal/idempotency"
	"github.com/amkoya-stack/cycles-sub000/internal/jobs"
	"github.com/amkoya-stack/cycles-sub000/internal/metrics"
	"github.com/amkoya-stack/cycles-sub000/internal/platform/config"
	"github.com/amkoya-stack/cycles-sub000/internal/repositories/database/pgsql"
	"github.com/amkoya-stack/cycles-sub000/internal/scheduler"
	"github.com/amkoya-stack/cycles-sub000/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix   = "chama:idem:"
	notificationTimeout = 30 * time.Second
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db         *pgxpool.Pool
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	services   *portssvc.ServiceContainer
	dispatcher *jobs.Dispatcher
	runner     *scheduler.Runner
	// source is nil when jobs run inline.
	source jobs.Source

	closers []func(context.Context) error
}

type appOptions struct {
	// worker consumes queued jobs in this process. Without a broker, a
	// non-worker process runs jobs inline as they are published.
	worker bool
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			if cerr := a.Close(context.Background()); cerr != nil {
				logger.Warn("Cleanup after failed startup", slog.String("error", cerr.Error()))
			}
		}
	}()

	a.db, err = database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error {
		a.db.Close()
		return nil
	})

	if cfg.EnableMetrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.New(a.registry)
	}

	store, err := a.idempotencyStore(ctx)
	if err != nil {
		return nil, err
	}

	httpCfg := httpclient.Config{Timeout: cfg.HTTPTimeout, MaxRetries: cfg.HTTPMaxRetries}
	notifier := a.notifier(httpCfg)
	async := notification.NewAsync(notifier, notificationTimeout, logger)
	a.onClose(async.Close)

	publisher, inline, err := a.jobTransport(opts)
	if err != nil {
		return nil, err
	}

	a.services = services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(a.db), services.Gateways{
		Ledger:        ledger.NewClient(cfg.LedgerBaseURL, cfg.LedgerAPIKey, httpCfg, logger),
		Notifier:      notifier,
		AsyncNotifier: async,
		Idempotency:   store,
		Publisher:     publisher,
	})

	a.dispatcher = jobs.NewDispatcher(store, jobs.NewHandlers(a.services),
		jobs.WithResultTTL(cfg.IdempotencyTTL),
		jobs.WithMetrics(a.metrics))
	if inline != nil {
		inline.Dispatcher = a.dispatcher
	}
	a.runner = scheduler.NewRunner(a.services, a.dispatcher, cfg.Sweep, a.metrics, logger)
	return a, nil
}

func (a *app) idempotencyStore(ctx context.Context) (idempotency.Store, error) {
	if a.cfg.RedisURL == "" {
		a.logger.Warn("REDIS_URL not set, idempotency keys are kept in memory")
		return idempotency.NewMemoryStore(), nil
	}
	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	a.onClose(func(context.Context) error { return client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.logger.Info("Idempotency store connected to Redis")
	return idempotency.NewRedisStore(client, idempotencyPrefix), nil
}

// notifier leaves a channel nil when it is not configured.
func (a *app) notifier(httpCfg httpclient.Config) *notification.Notifier {
	var sms notification.SMSSender
	if a.cfg.SMSGatewayURL != "" {
		sms = notification.NewSMSClient(a.cfg.SMSGatewayURL, a.cfg.SMSAPIKey, a.cfg.SMSSenderID, httpCfg, a.logger)
	}
	var email notification.EmailSender
	if a.cfg.ResendAPIKey != "" {
		email = notification.NewEmailClient(a.cfg.ResendAPIKey, a.cfg.EmailFrom, a.logger)
	}
	return notification.NewNotifier(sms, email, a.logger)
}

// jobTransport picks RabbitMQ when configured, otherwise an in-process queue
// for workers or inline dispatch for one-shot runs.
func (a *app) jobTransport(opts appOptions) (portssvc.JobPublisher, *jobs.InlinePublisher, error) {
	if a.cfg.AMQPURL != "" {
		publisher, err := jobs.NewPublisher(a.cfg.AMQPURL, a.cfg.JobsExchange)
		if err != nil {
			return nil, nil, err
		}
		a.onClose(func(context.Context) error {
			publisher.Close()
			return nil
		})
		if opts.worker {
			consumer, err := jobs.NewConsumer(a.cfg.AMQPURL, a.cfg.JobsExchange, a.cfg.JobsQueue, a.cfg.WorkerConcurrency, a.logger)
			if err != nil {
				return nil, nil, err
			}
			a.onClose(func(context.Context) error {
				consumer.Close()
				return nil
			})
			a.source = consumer
		}
		return publisher, nil, nil
	}

	if !opts.worker {
		inline := &jobs.InlinePublisher{}
		return inline, inline, nil
	}
	a.logger.Warn("RABBITMQ_URL not set, jobs are queued in memory and lost on restart")
	queue := jobs.NewMemoryQueue(a.cfg.Retry.MaxRetries, a.logger)
	a.onClose(func(context.Context) error {
		queue.Close()
		return nil
	})
	a.source = queue
	return queue, nil, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/handlers"
	"github.com/amkoya-stack/cycles-sub000/internal/jobs"
	"github.com/amkoya-stack/cycles-sub000/internal/middleware"
	"github.com/amkoya-stack/cycles-sub000/internal/platform/config"
	"github.com/amkoya-stack/cycles-sub000/internal/scheduler"
	"github.com/amkoya-stack/cycles-sub000/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

type serveOptions struct {
	skipMigrations bool
	noScheduler    bool
	noWorkers      bool
}

func serveCommand() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the sweep scheduler and the job workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			return serveRun(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
	cmd.Flags().BoolVar(&opts.noScheduler, "no-scheduler", false, "do not run scheduled sweeps in this process")
	cmd.Flags().BoolVar(&opts.noWorkers, "no-workers", false, "do not consume queued jobs in this process")
	return cmd
}

func serveRun(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	logger := newLogger(cfg)

	if !opts.skipMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{worker: !opts.noWorkers})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("Shutdown cleanup failed", slog.String("error", err.Error()))
		}
	}()

	srv, err := newHTTPServer(a, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if !opts.noScheduler {
		sched := scheduler.New(a.runner, cfg.Schedules, cfg.Sweep.ClaimLease, logger)
		if err := sched.Start(); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Stopping scheduler")
			<-sched.Stop().Done()
			logger.Info("Scheduler stopped")
			return nil
		})
	}

	if a.source != nil {
		pool := jobs.NewPool(a.source, a.dispatcher, cfg.WorkerConcurrency, logger)
		g.Go(func() error {
			return pool.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("Shutdown complete")
	return err
}

func newHTTPServer(a *app, logger *slog.Logger) (*http.Server, error) {
	if a.cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	var gatherer prometheus.Gatherer
	if a.registry != nil {
		gatherer = a.registry
	}
	if err := handlers.RegisterRoutes(r, a.cfg, a.services, gatherer); err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

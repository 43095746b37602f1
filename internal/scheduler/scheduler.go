package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/platform/config"
	"github.com/robfig/cron/v3"
)

// Scheduler owns one cron entry per sweep. Each entry runs in its own
// goroutine and an entry still running when its next tick fires is skipped.
type Scheduler struct {
	cron      *cron.Cron
	runner    *Runner
	schedules map[string]string
	logger    *slog.Logger
	timeout   time.Duration
}

// New builds a scheduler in UTC. timeout bounds a single sweep run; zero means none.
func New(runner *Runner, schedules config.Schedules, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{
		cron:   c,
		runner: runner,
		schedules: map[string]string{
			SweepAutoDebit:        schedules.AutoDebit,
			SweepPayoutRetry:      schedules.PayoutRetry,
			SweepScheduledPayouts: schedules.ScheduledPayouts,
			SweepReminders:        schedules.Reminders,
		},
		logger:  logger,
		timeout: timeout,
	}
}

// Start registers every sweep with a non-empty schedule and starts the cron loop.
func (s *Scheduler) Start() error {
	for _, name := range Names {
		spec := s.schedules[name]
		if spec == "" {
			s.logger.Warn("Sweep disabled, no schedule", slog.String("job", name))
			continue
		}
		if _, err := s.cron.AddFunc(spec, s.entry(name)); err != nil {
			return fmt.Errorf("invalid schedule %q for sweep %s: %w", spec, name, err)
		}
		s.logger.Info("Scheduled sweep", slog.String("job", name), slog.String("schedule", spec))
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop. The returned context is done once running sweeps finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) entry(name string) func() {
	return func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		// Errors are logged and counted by the runner.
		_, _ = s.runner.Run(ctx, name)
	}
}

package services

import (
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/amkoya-stack/cycles-sub000/internal/platform/config"
)

// Gateways bundles the external collaborators the services call out to.
type Gateways struct {
	Ledger portssvc.LedgerGateway
	// Notifier reports delivery errors; reminders record them.
	Notifier portssvc.NotificationGateway
	// AsyncNotifier returns immediately; payout receipts use it.
	AsyncNotifier portssvc.NotificationGateway
	Idempotency   portssvc.IdempotencyStore
	Publisher     portssvc.JobPublisher
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, gw Gateways) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	retryPolicy := domain.RetryPolicy{MaxRetries: cfg.Retry.MaxRetries, Cooldown: cfg.Retry.Cooldown}

	// Reminders first: contributions cancel them through the ReminderCanceller port.
	container.Reminder = NewReminderService(
		repos.ChamaRepo,
		repos.CycleRepo,
		repos.ReminderRepo,
		gw.Notifier,
		WithReminderWindow(cfg.ReminderWindow),
		WithReminderMaxAttempts(cfg.Retry.MaxRetries),
		WithReminderClaimLease(cfg.Sweep.ClaimLease),
	)

	container.Rotation = NewRotationService(
		repos.ChamaRepo,
		repos.RotationRepo,
		repos.CycleRepo,
		WithSkippedPositionPolicy(domain.SkippedPositionPolicy(cfg.RotationSkippedPolicy)),
	)

	container.Cycle = NewCycleService(
		repos.ChamaRepo,
		repos.CycleRepo,
		gw.Ledger,
		gw.Idempotency,
		gw.Publisher,
		WithReminderCanceller(container.Reminder),
		WithCycleIdempotencyTTL(cfg.IdempotencyTTL),
	)

	container.Payout = NewPayoutService(
		repos.ChamaRepo,
		repos.CycleRepo,
		repos.RotationRepo,
		repos.PayoutRepo,
		container.Rotation,
		gw.Ledger,
		WithPayoutNotifier(gw.AsyncNotifier),
		WithPayoutRetryPolicy(retryPolicy),
		WithPayoutClaimLease(cfg.Sweep.ClaimLease),
	)

	container.AutoDebit = NewAutoDebitService(
		repos.ChamaRepo,
		repos.AutoDebitRepo,
		container.Cycle,
		WithAutoDebitRetryPolicy(retryPolicy),
		WithAutoDebitClaimLease(cfg.Sweep.ClaimLease),
	)

	return container
}

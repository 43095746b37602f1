package repositories

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
)

// ReminderRepositoryFacade persists contribution reminders.
type ReminderRepositoryFacade interface {
	// CreateReminders inserts reminders, ignoring ones already scheduled for the same cycle, member and kind.
	CreateReminders(ctx context.Context, reminders []domain.ContributionReminder) (int, error)
	// ClaimDueReminders leases pending reminders scheduled at or before now.
	ClaimDueReminders(ctx context.Context, now time.Time, lease time.Duration, maxAttempts, limit int) ([]domain.ContributionReminder, error)
	UpdateReminder(ctx context.Context, reminder domain.ContributionReminder) error
	// CancelPendingReminders cancels a member's unsent reminders for a cycle.
	CancelPendingReminders(ctx context.Context, cycleID, memberID string) (int, error)
}

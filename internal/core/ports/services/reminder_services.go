package services

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
)

// ReminderSvcFacade schedules and delivers contribution reminders.
type ReminderSvcFacade interface {
	ReminderCanceller

	// ScheduleReminders creates due-soon and overdue reminders for unpaid members. It returns how many were new.
	ScheduleReminders(ctx context.Context, now time.Time) (int, error)
	ClaimDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.ContributionReminder, error)
	// SendReminder delivers one reminder. Delivery errors are recorded on the reminder and returned.
	SendReminder(ctx context.Context, reminder domain.ContributionReminder) error
}

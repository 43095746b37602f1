package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	"github.com/google/uuid"
)

const (
	// DefaultReminderWindow is how long before the due date the due-soon reminder goes out.
	DefaultReminderWindow = 24 * time.Hour
	// DefaultReminderCycleBatch caps the cycles scanned per scheduling run.
	DefaultReminderCycleBatch = 200
)

// reminderService implements the ReminderSvcFacade interface
type reminderService struct {
	BaseService
	chamaRepo    portsrepo.ChamaReader
	cycleRepo    portsrepo.CycleReader
	reminderRepo portsrepo.ReminderRepositoryFacade
	notifier     portssvc.NotificationGateway
	window       time.Duration
	maxAttempts  int
	cycleBatch   int
	claimLease   time.Duration
}

// ReminderOption is a functional option for configuring the reminder service
type ReminderOption func(*reminderService)

// WithReminderWindow sets how early the due-soon reminder is sent.
func WithReminderWindow(window time.Duration) ReminderOption {
	return func(s *reminderService) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithReminderMaxAttempts sets how many delivery attempts a reminder gets.
func WithReminderMaxAttempts(attempts int) ReminderOption {
	return func(s *reminderService) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithReminderClaimLease overrides how long claimed reminders stay leased to a sweep.
func WithReminderClaimLease(lease time.Duration) ReminderOption {
	return func(s *reminderService) {
		if lease > 0 {
			s.claimLease = lease
		}
	}
}

// NewReminderService creates a new reminder service with the provided options.
// notifier must report delivery failures synchronously.
func NewReminderService(
	chamaRepo portsrepo.ChamaReader,
	cycleRepo portsrepo.CycleReader,
	reminderRepo portsrepo.ReminderRepositoryFacade,
	notifier portssvc.NotificationGateway,
	options ...ReminderOption,
) portssvc.ReminderSvcFacade {
	svc := &reminderService{
		BaseService:  newBaseService(),
		chamaRepo:    chamaRepo,
		cycleRepo:    cycleRepo,
		reminderRepo: reminderRepo,
		notifier:     notifier,
		window:       DefaultReminderWindow,
		maxAttempts:  domain.DefaultMaxRetries,
		cycleBatch:   DefaultReminderCycleBatch,
		claimLease:   DefaultClaimLease,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ReminderSvcFacade = (*reminderService)(nil)

// ScheduleReminders queues a due-soon reminder for each unpaid member of a
// cycle entering its reminder window, and an overdue one once the cycle is past due.
func (s *reminderService) ScheduleReminders(ctx context.Context, now time.Time) (int, error) {
	cycles, err := s.cycleRepo.ListCyclesAwaitingReminders(ctx, now, now.Add(s.window), s.cycleBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list cycles due soon: %w", err)
	}

	created := 0
	for _, cycle := range cycles {
		unpaid, err := s.cycleRepo.ListUnpaidMembers(ctx, cycle.ID)
		if err != nil {
			s.LogError(ctx, err, "Failed to list unpaid members", slog.String("cycle_id", cycle.ID))
			continue
		}

		reminders := make([]domain.ContributionReminder, 0, len(unpaid))
		for _, member := range unpaid {
			kind, scheduledFor := domain.ReminderKindAt(cycle.DueDate, now), cycle.DueDate.Add(-s.window)
			if kind == domain.ReminderOverdue {
				scheduledFor = cycle.DueDate
			}
			reminders = append(reminders, domain.ContributionReminder{
				ID:           uuid.NewString(),
				ChamaID:      cycle.ChamaID,
				CycleID:      cycle.ID,
				MemberID:     member.ID,
				Kind:         kind,
				ScheduledFor: scheduledFor,
				Status:       domain.ReminderPending,
				CreatedAt:    now,
			})
		}
		if len(reminders) == 0 {
			continue
		}

		n, err := s.reminderRepo.CreateReminders(ctx, reminders)
		if err != nil {
			s.LogError(ctx, err, "Failed to create reminders", slog.String("cycle_id", cycle.ID))
			continue
		}
		created += n
	}

	s.LogInfo(ctx, "Reminders scheduled", slog.Int("cycles", len(cycles)), slog.Int("created", created))
	return created, nil
}

func (s *reminderService) ClaimDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.ContributionReminder, error) {
	return s.reminderRepo.ClaimDueReminders(ctx, now, s.claimLease, s.maxAttempts, limit)
}

// SendReminder delivers the reminder by SMS and email. Reminders for members
// who paid in the meantime, or left the chama, are cancelled instead.
func (s *reminderService) SendReminder(ctx context.Context, reminder domain.ContributionReminder) error {
	cycle, err := s.cycleRepo.FindCycleByID(ctx, reminder.CycleID)
	if err != nil {
		return err
	}
	member, err := s.chamaRepo.FindMemberByID(ctx, reminder.MemberID)
	if err != nil {
		return err
	}

	if cycle.IsCompleted() || !member.IsActive() {
		reminder.Status = domain.ReminderCancelled
		return s.reminderRepo.UpdateReminder(ctx, reminder)
	}
	paid, err := s.cycleRepo.HasCompletedContribution(ctx, cycle.ID, member.ID)
	if err != nil {
		return fmt.Errorf("failed to check contribution: %w", err)
	}
	if paid {
		reminder.Status = domain.ReminderCancelled
		return s.reminderRepo.UpdateReminder(ctx, reminder)
	}

	chama, err := s.chamaRepo.FindChamaByID(ctx, cycle.ChamaID)
	if err != nil {
		return err
	}
	subject, message := reminderMessage(reminder.Kind, *chama, *member, *cycle)

	var sendErrs []error
	if member.Phone != "" {
		if err := s.notifier.SendSMS(ctx, member.Phone, message); err != nil {
			sendErrs = append(sendErrs, fmt.Errorf("sms: %w", err))
		}
	}
	if member.Email != "" {
		if err := s.notifier.SendEmail(ctx, member.Email, subject, "<p>"+message+"</p>"); err != nil {
			sendErrs = append(sendErrs, fmt.Errorf("email: %w", err))
		}
	}

	reminder.Attempts++
	if sendErr := errors.Join(sendErrs...); sendErr != nil {
		lastError := sendErr.Error()
		reminder.LastError = &lastError
		reminder.Status = domain.ReminderPending
		if reminder.Attempts >= s.maxAttempts {
			reminder.Status = domain.ReminderFailed
		}
		if err := s.reminderRepo.UpdateReminder(ctx, reminder); err != nil {
			s.LogError(ctx, err, "Failed to record reminder failure", slog.String("reminder_id", reminder.ID))
		}
		return sendErr
	}

	sentAt := s.Now()
	reminder.Status = domain.ReminderSent
	reminder.SentAt = &sentAt
	reminder.LastError = nil
	return s.reminderRepo.UpdateReminder(ctx, reminder)
}

// CancelReminders cancels a member's unsent reminders for a cycle.
func (s *reminderService) CancelReminders(ctx context.Context, cycleID, memberID string) error {
	n, err := s.reminderRepo.CancelPendingReminders(ctx, cycleID, memberID)
	if err != nil {
		return fmt.Errorf("failed to cancel reminders: %w", err)
	}
	if n > 0 {
		s.LogDebug(ctx, "Reminders cancelled", slog.String("cycle_id", cycleID), slog.String("member_id", memberID), slog.Int("count", n))
	}
	return nil
}

func reminderMessage(kind domain.ReminderKind, chama domain.Chama, member domain.Member, cycle domain.ContributionCycle) (string, string) {
	amount := chama.ContributionAmount.StringFixed(2)
	due := cycle.DueDate.Format("02 Jan 2006")
	if kind == domain.ReminderOverdue {
		return fmt.Sprintf("%s contribution overdue", chama.Name),
			fmt.Sprintf("Hi %s, your %s %s contribution to %s was due on %s. Please pay as soon as possible.", member.Name, chama.Currency, amount, chama.Name, due)
	}
	return fmt.Sprintf("%s contribution due soon", chama.Name),
		fmt.Sprintf("Hi %s, your %s %s contribution to %s is due on %s.", member.Name, chama.Currency, amount, chama.Name, due)
}

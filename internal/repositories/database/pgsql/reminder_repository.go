package pgsql

import (
	"context"
	"slices"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
	"github.com/amkoya-stack/cycles-sub000/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxReminderRepository struct {
	BaseRepository
}

// newPgxReminderRepository creates a new repository for contribution reminders.
func newPgxReminderRepository(pool *pgxpool.Pool) portsrepo.ReminderRepositoryFacade {
	return &PgxReminderRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ReminderRepositoryFacade = (*PgxReminderRepository)(nil)

const (
	reminderColumns = `
		reminder_id, chama_id, cycle_id, member_id, kind, scheduled_for, status,
		attempts, last_error, sent_at, created_at`

	insertReminderQuery = `
		INSERT INTO contribution_reminders (
			reminder_id, chama_id, cycle_id, member_id, kind, scheduled_for, status,
			attempts, last_error, sent_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (cycle_id, member_id, kind) DO NOTHING`

	claimDueRemindersQuery = `
		WITH due AS (
			SELECT reminder_id AS due_id
			FROM contribution_reminders
			WHERE status = 'pending' AND scheduled_for <= $1 AND attempts < $3
			  AND (claimed_until IS NULL OR claimed_until <= $1)
			ORDER BY scheduled_for
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		UPDATE contribution_reminders SET claimed_until = $2
		FROM due
		WHERE contribution_reminders.reminder_id = due.due_id
		RETURNING ` + reminderColumns

	updateReminderQuery = `
		UPDATE contribution_reminders
		SET status = $2, attempts = $3, last_error = $4, sent_at = $5, claimed_until = NULL
		WHERE reminder_id = $1`

	cancelPendingRemindersQuery = `
		UPDATE contribution_reminders
		SET status = 'cancelled', claimed_until = NULL
		WHERE cycle_id = $1 AND member_id = $2 AND status = 'pending'`
)

// CreateReminders inserts the batch in one round trip and counts the rows
// that were not already scheduled.
func (r *PgxReminderRepository) CreateReminders(ctx context.Context, reminders []domain.ContributionReminder) (int, error) {
	if len(reminders) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, rem := range reminders {
		m := mapping.ToModelReminder(rem)
		batch.Queue(insertReminderQuery,
			m.ReminderID, m.ChamaID, m.CycleID, m.MemberID, m.Kind, m.ScheduledFor, m.Status,
			m.Attempts, m.LastError, m.SentAt, m.CreatedAt,
		)
	}

	results := r.Pool.SendBatch(ctx, batch)
	defer results.Close()
	created := 0
	for range reminders {
		tag, err := results.Exec()
		if err != nil {
			return created, apperrors.NewAppError(500, "failed to insert reminder", err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

func (r *PgxReminderRepository) ClaimDueReminders(ctx context.Context, now time.Time, lease time.Duration, maxAttempts, limit int) ([]domain.ContributionReminder, error) {
	rows, err := collectAll[models.ContributionReminder](r.Pool.Query(ctx, claimDueRemindersQuery,
		now, now.Add(lease), maxAttempts, limit))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to claim due reminders", err)
	}
	out := make([]domain.ContributionReminder, len(rows))
	for i, row := range rows {
		out[i] = mapping.ToDomainReminder(row)
	}
	slices.SortFunc(out, func(a, b domain.ContributionReminder) int { return a.ScheduledFor.Compare(b.ScheduledFor) })
	return out, nil
}

func (r *PgxReminderRepository) UpdateReminder(ctx context.Context, reminder domain.ContributionReminder) error {
	m := mapping.ToModelReminder(reminder)
	tag, err := r.Pool.Exec(ctx, updateReminderQuery, m.ReminderID, m.Status, m.Attempts, m.LastError, m.SentAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update reminder", err).With("id", reminder.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("reminder", reminder.ID)
	}
	return nil
}

func (r *PgxReminderRepository) CancelPendingReminders(ctx context.Context, cycleID, memberID string) (int, error) {
	tag, err := r.Pool.Exec(ctx, cancelPendingRemindersQuery, cycleID, memberID)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to cancel reminders", err).
			With("cycleId", cycleID).
			With("memberId", memberID)
	}
	return int(tag.RowsAffected()), nil
}

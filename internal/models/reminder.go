package models

import "time"

// ContributionReminder is a row of the contribution_reminders table.
type ContributionReminder struct {
	ReminderID   string     `db:"reminder_id"`
	ChamaID      string     `db:"chama_id"`
	CycleID      string     `db:"cycle_id"`
	MemberID     string     `db:"member_id"`
	Kind         string     `db:"kind"`
	ScheduledFor time.Time  `db:"scheduled_for"`
	Status       string     `db:"status"`
	Attempts     int        `db:"attempts"`
	LastError    *string    `db:"last_error"`
	SentAt       *time.Time `db:"sent_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

package domain

import "time"

// ReminderKind distinguishes the two contribution nudges.
type ReminderKind string

const (
	ReminderDueSoon ReminderKind = "due_soon"
	ReminderOverdue ReminderKind = "overdue"
)

// ReminderKindAt returns the reminder a cycle due at dueDate calls for at now.
func ReminderKindAt(dueDate, now time.Time) ReminderKind {
	if now.Before(dueDate) {
		return ReminderDueSoon
	}
	return ReminderOverdue
}

// ReminderStatus is the delivery state of a reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCancelled ReminderStatus = "cancelled"
	ReminderFailed    ReminderStatus = "failed"
)

// ContributionReminder is a scheduled notification to a member who has not yet paid.
type ContributionReminder struct {
	ID           string         `json:"id"`
	ChamaID      string         `json:"chamaId"`
	CycleID      string         `json:"cycleId"`
	MemberID     string         `json:"memberId"`
	Kind         ReminderKind   `json:"kind"`
	ScheduledFor time.Time      `json:"scheduledFor"`
	Status       ReminderStatus `json:"status"`
	Attempts     int            `json:"attempts"`
	LastError    *string        `json:"lastError,omitempty"`
	SentAt       *time.Time     `json:"sentAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

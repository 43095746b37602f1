package mapping

import (
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
)

// ToModelReminder converts a domain ContributionReminder to a model ContributionReminder
func ToModelReminder(d domain.ContributionReminder) models.ContributionReminder {
	return models.ContributionReminder{
		ReminderID:   d.ID,
		ChamaID:      d.ChamaID,
		CycleID:      d.CycleID,
		MemberID:     d.MemberID,
		Kind:         string(d.Kind),
		ScheduledFor: d.ScheduledFor,
		Status:       string(d.Status),
		Attempts:     d.Attempts,
		LastError:    d.LastError,
		SentAt:       d.SentAt,
		CreatedAt:    d.CreatedAt,
	}
}

// ToDomainReminder converts a model ContributionReminder to a domain ContributionReminder
func ToDomainReminder(m models.ContributionReminder) domain.ContributionReminder {
	return domain.ContributionReminder{
		ID:           m.ReminderID,
		ChamaID:      m.ChamaID,
		CycleID:      m.CycleID,
		MemberID:     m.MemberID,
		Kind:         domain.ReminderKind(m.Kind),
		ScheduledFor: m.ScheduledFor,
		Status:       domain.ReminderStatus(m.Status),
		Attempts:     m.Attempts,
		LastError:    m.LastError,
		SentAt:       m.SentAt,
		CreatedAt:    m.CreatedAt,
	}
}

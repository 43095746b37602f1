package mapping

import (
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
)

// ToModelPayout converts a domain Payout to a model Payout
func ToModelPayout(d domain.Payout) models.Payout {
	return models.Payout{
		PayoutID:           d.ID,
		ChamaID:            d.ChamaID,
		CycleID:            d.CycleID,
		RecipientMemberID:  d.RecipientMemberID,
		Amount:             d.Amount,
		Status:             string(d.Status),
		ScheduledAt:        d.ScheduledAt,
		ExecutedAt:         d.ExecutedAt,
		TransactionID:      d.TransactionID,
		ExternalReference:  d.ExternalReference,
		RetryCount:         d.RetryCount,
		FailedReason:       d.FailedReason,
		LastFailedAt:       d.LastFailedAt,
		CancelledReason:    d.CancelledReason,
		RotationPositionID: d.RotationPositionID,
		AuditFields:        models.AuditFields(d.AuditFields),
	}
}

// ToDomainPayout converts a model Payout to a domain Payout
func ToDomainPayout(m models.Payout) domain.Payout {
	return domain.Payout{
		ID:                 m.PayoutID,
		ChamaID:            m.ChamaID,
		CycleID:            m.CycleID,
		RecipientMemberID:  m.RecipientMemberID,
		Amount:             m.Amount,
		Status:             domain.PayoutStatus(m.Status),
		ScheduledAt:        m.ScheduledAt,
		ExecutedAt:         m.ExecutedAt,
		TransactionID:      m.TransactionID,
		ExternalReference:  m.ExternalReference,
		RetryCount:         m.RetryCount,
		FailedReason:       m.FailedReason,
		LastFailedAt:       m.LastFailedAt,
		CancelledReason:    m.CancelledReason,
		RotationPositionID: m.RotationPositionID,
		AuditFields:        domain.AuditFields(m.AuditFields),
	}
}

// ToDomainPayoutSlice converts a slice of model payouts to domain payouts
func ToDomainPayoutSlice(ms []models.Payout) []domain.Payout {
	ds := make([]domain.Payout, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainPayout(m)
	}
	return ds
}

// ToModelPayoutDistribution converts a domain PayoutDistribution to a model PayoutDistribution
func ToModelPayoutDistribution(d domain.PayoutDistribution) models.PayoutDistribution {
	return models.PayoutDistribution{
		DistributionID: d.ID,
		PayoutID:       d.PayoutID,
		ContributionID: d.ContributionID,
		Amount:         d.Amount,
		CreatedAt:      d.CreatedAt,
	}
}

// ToDomainPayoutDistribution converts a model PayoutDistribution to a domain PayoutDistribution
func ToDomainPayoutDistribution(m models.PayoutDistribution) domain.PayoutDistribution {
	return domain.PayoutDistribution{
		ID:             m.DistributionID,
		PayoutID:       m.PayoutID,
		ContributionID: m.ContributionID,
		Amount:         m.Amount,
		CreatedAt:      m.CreatedAt,
	}
}

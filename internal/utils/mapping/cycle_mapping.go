package mapping

import (
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
)

// ToModelCycle converts a domain ContributionCycle to a model ContributionCycle
func ToModelCycle(d domain.ContributionCycle) models.ContributionCycle {
	return models.ContributionCycle{
		CycleID:                   d.ID,
		ChamaID:                   d.ChamaID,
		RotationOrderID:           d.RotationOrderID,
		CycleNumber:               d.CycleNumber,
		ExpectedAmount:            d.ExpectedAmount,
		CollectedAmount:           d.CollectedAmount,
		StartDate:                 d.StartDate,
		DueDate:                   d.DueDate,
		PayoutRecipientPositionID: d.PayoutRecipientPositionID,
		Status:                    string(d.Status),
		CompletedAt:               d.CompletedAt,
		PayoutExecutedAt:          d.PayoutExecutedAt,
		CreatedAt:                 d.CreatedAt,
	}
}

// ToDomainCycle converts a model ContributionCycle to a domain ContributionCycle
func ToDomainCycle(m models.ContributionCycle) domain.ContributionCycle {
	return domain.ContributionCycle{
		ID:                        m.CycleID,
		ChamaID:                   m.ChamaID,
		RotationOrderID:           m.RotationOrderID,
		CycleNumber:               m.CycleNumber,
		ExpectedAmount:            m.ExpectedAmount,
		CollectedAmount:           m.CollectedAmount,
		StartDate:                 m.StartDate,
		DueDate:                   m.DueDate,
		PayoutRecipientPositionID: m.PayoutRecipientPositionID,
		Status:                    domain.CycleStatus(m.Status),
		CompletedAt:               m.CompletedAt,
		PayoutExecutedAt:          m.PayoutExecutedAt,
		CreatedAt:                 m.CreatedAt,
	}
}

// ToDomainCycleSlice converts a slice of model cycles to domain cycles
func ToDomainCycleSlice(ms []models.ContributionCycle) []domain.ContributionCycle {
	ds := make([]domain.ContributionCycle, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainCycle(m)
	}
	return ds
}

// ToModelContribution converts a domain Contribution to a model Contribution
func ToModelContribution(d domain.Contribution) models.Contribution {
	return models.Contribution{
		ContributionID: d.ID,
		CycleID:        d.CycleID,
		ChamaID:        d.ChamaID,
		MemberID:       d.MemberID,
		Amount:         d.Amount,
		Status:         string(d.Status),
		TransactionID:  d.TransactionID,
		PaymentMethod:  d.PaymentMethod,
		Reference:      d.Reference,
		ContributedAt:  d.ContributedAt,
	}
}

// ToDomainContribution converts a model Contribution to a domain Contribution
func ToDomainContribution(m models.Contribution) domain.Contribution {
	return domain.Contribution{
		ID:            m.ContributionID,
		CycleID:       m.CycleID,
		ChamaID:       m.ChamaID,
		MemberID:      m.MemberID,
		Amount:        m.Amount,
		Status:        domain.ContributionStatus(m.Status),
		TransactionID: m.TransactionID,
		PaymentMethod: m.PaymentMethod,
		Reference:     m.Reference,
		ContributedAt: m.ContributedAt,
	}
}

// ToDomainContributionSlice converts a slice of model contributions to domain contributions
func ToDomainContributionSlice(ms []models.Contribution) []domain.Contribution {
	ds := make([]domain.Contribution, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainContribution(m)
	}
	return ds
}

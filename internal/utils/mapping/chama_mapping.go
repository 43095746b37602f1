package mapping

import (
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
)

// ToDomainChama converts a model Chama to a domain Chama
func ToDomainChama(m models.Chama) domain.Chama {
	return domain.Chama{
		ID:                 m.ChamaID,
		Name:               m.Name,
		ContributionAmount: m.ContributionAmount,
		Currency:           m.Currency,
		AutoPayout:         m.AutoPayout,
	}
}

// ToDomainMember converts a model Member to a domain Member
func ToDomainMember(m models.Member) domain.Member {
	return domain.Member{
		ID:       m.MemberID,
		ChamaID:  m.ChamaID,
		UserID:   m.UserID,
		Name:     m.FullName,
		Phone:    m.Phone,
		Email:    m.Email,
		Status:   domain.MemberStatus(m.Status),
		JoinedAt: m.JoinedAt,
	}
}

// ToDomainMemberSlice converts a slice of model Members to domain Members
func ToDomainMemberSlice(ms []models.Member) []domain.Member {
	ds := make([]domain.Member, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainMember(m)
	}
	return ds
}

// ToDomainMemberMetrics converts a model MemberMetrics to a domain MemberMetrics
func ToDomainMemberMetrics(m models.MemberMetrics) domain.MemberMetrics {
	return domain.MemberMetrics{
		MemberID:            m.MemberID,
		OnTimeRate:          m.OnTimeRate,
		ActivityScore:       m.ActivityScore,
		PendingPenaltyCount: m.PendingPenalties,
	}
}

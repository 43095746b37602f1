package mapping

import (
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
)

// ToModelRotationOrder converts a domain RotationOrder to a model RotationOrder
func ToModelRotationOrder(d domain.RotationOrder) models.RotationOrder {
	return models.RotationOrder{
		RotationOrderID:     d.ID,
		ChamaID:             d.ChamaID,
		Policy:              string(d.Policy),
		CycleDurationMonths: d.CycleDurationMonths,
		CurrentPosition:     d.CurrentPosition,
		TotalPositions:      d.TotalPositions,
		Status:              string(d.Status),
		StartDate:           d.StartDate,
		CompletedAt:         d.CompletedAt,
		AuditFields:         models.AuditFields(d.AuditFields),
	}
}

// ToDomainRotationOrder converts a model RotationOrder to a domain RotationOrder
func ToDomainRotationOrder(m models.RotationOrder) domain.RotationOrder {
	return domain.RotationOrder{
		ID:                  m.RotationOrderID,
		ChamaID:             m.ChamaID,
		Policy:              domain.RotationPolicy(m.Policy),
		CycleDurationMonths: m.CycleDurationMonths,
		CurrentPosition:     m.CurrentPosition,
		TotalPositions:      m.TotalPositions,
		Status:              domain.RotationStatus(m.Status),
		StartDate:           m.StartDate,
		CompletedAt:         m.CompletedAt,
		AuditFields:         domain.AuditFields(m.AuditFields),
	}
}

// ToModelRotationPosition converts a domain RotationPosition to a model RotationPosition
func ToModelRotationPosition(d domain.RotationPosition) models.RotationPosition {
	return models.RotationPosition{
		PositionID:      d.ID,
		RotationOrderID: d.RotationOrderID,
		MemberID:        d.MemberID,
		Position:        d.Position,
		Status:          string(d.Status),
		MeritScore:      d.MeritScore,
		Note:            d.Note,
		CompletedAt:     d.CompletedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// ToDomainRotationPosition converts a model RotationPosition to a domain RotationPosition
func ToDomainRotationPosition(m models.RotationPosition) domain.RotationPosition {
	return domain.RotationPosition{
		ID:              m.PositionID,
		RotationOrderID: m.RotationOrderID,
		MemberID:        m.MemberID,
		Position:        m.Position,
		Status:          domain.PositionStatus(m.Status),
		MeritScore:      m.MeritScore,
		Note:            m.Note,
		CompletedAt:     m.CompletedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ToDomainRotationPositionSlice converts a slice of model positions to domain positions
func ToDomainRotationPositionSlice(ms []models.RotationPosition) []domain.RotationPosition {
	ds := make([]domain.RotationPosition, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainRotationPosition(m)
	}
	return ds
}

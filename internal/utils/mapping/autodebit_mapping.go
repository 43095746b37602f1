package mapping

import (
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelAutoDebit converts a domain AutoDebitConfig to a model AutoDebit
func ToModelAutoDebit(d domain.AutoDebitConfig) models.AutoDebit {
	var fixed decimal.NullDecimal
	if d.FixedAmount != nil {
		fixed = decimal.NewNullDecimal(*d.FixedAmount)
	}
	return models.AutoDebit{
		AutoDebitID:         d.ID,
		ChamaID:             d.ChamaID,
		MemberID:            d.MemberID,
		Enabled:             d.Enabled,
		PaymentMethod:       d.PaymentMethod,
		AmountType:          string(d.AmountType),
		FixedAmount:         fixed,
		AutoDebitDay:        d.AutoDebitDay,
		NextExecutionAt:     d.NextExecutionAt,
		LastExecutionAt:     d.LastExecutionAt,
		LastExecutionStatus: string(d.LastExecutionStatus),
		LastFailedReason:    d.LastFailedReason,
		RetryCount:          d.RetryCount,
		ClaimedUntil:        d.ClaimedUntil,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

// ToDomainAutoDebit converts a model AutoDebit to a domain AutoDebitConfig
func ToDomainAutoDebit(m models.AutoDebit) domain.AutoDebitConfig {
	var fixed *decimal.Decimal
	if m.FixedAmount.Valid {
		amount := m.FixedAmount.Decimal
		fixed = &amount
	}
	return domain.AutoDebitConfig{
		ID:                  m.AutoDebitID,
		ChamaID:             m.ChamaID,
		MemberID:            m.MemberID,
		Enabled:             m.Enabled,
		PaymentMethod:       m.PaymentMethod,
		AmountType:          domain.AmountType(m.AmountType),
		FixedAmount:         fixed,
		AutoDebitDay:        m.AutoDebitDay,
		NextExecutionAt:     m.NextExecutionAt,
		LastExecutionAt:     m.LastExecutionAt,
		LastExecutionStatus: domain.ExecutionStatus(m.LastExecutionStatus),
		LastFailedReason:    m.LastFailedReason,
		RetryCount:          m.RetryCount,
		ClaimedUntil:        m.ClaimedUntil,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

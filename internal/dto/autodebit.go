package dto

import (
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/shopspring/decimal"
)

// UpsertAutoDebitRequest creates or replaces a member's auto-debit instruction.
type UpsertAutoDebitRequest struct {
	ChamaID       string            `json:"chamaId" binding:"required,uuid"`
	MemberID      string            `json:"memberId" binding:"required,uuid"`
	Enabled       bool              `json:"enabled"`
	PaymentMethod string            `json:"paymentMethod" binding:"required,max=32"`
	AmountType    domain.AmountType `json:"amountType" binding:"required,amount_type"`
	FixedAmount   *decimal.Decimal  `json:"fixedAmount,omitempty" binding:"required_if=AmountType fixed,omitempty,gt=0"`
	AutoDebitDay  int               `json:"autoDebitDay" binding:"required,min=1,max=31"`
}

// AutoDebitResponse defines the data returned for an auto-debit config.
type AutoDebitResponse struct {
	ID                  string           `json:"id"`
	ChamaID             string           `json:"chamaId"`
	MemberID            string           `json:"memberId"`
	Enabled             bool             `json:"enabled"`
	PaymentMethod       string           `json:"paymentMethod"`
	AmountType          string           `json:"amountType"`
	FixedAmount         *decimal.Decimal `json:"fixedAmount,omitempty"`
	AutoDebitDay        int              `json:"autoDebitDay"`
	NextExecutionAt     time.Time        `json:"nextExecutionAt"`
	LastExecutionAt     *time.Time       `json:"lastExecutionAt,omitempty"`
	LastExecutionStatus string           `json:"lastExecutionStatus,omitempty"`
	LastFailedReason    *string          `json:"lastFailedReason,omitempty"`
	RetryCount          int              `json:"retryCount"`
}

// ToAutoDebitResponse converts a domain.AutoDebitConfig to AutoDebitResponse DTO.
func ToAutoDebitResponse(c *domain.AutoDebitConfig) AutoDebitResponse {
	return AutoDebitResponse{
		ID:                  c.ID,
		ChamaID:             c.ChamaID,
		MemberID:            c.MemberID,
		Enabled:             c.Enabled,
		PaymentMethod:       c.PaymentMethod,
		AmountType:          string(c.AmountType),
		FixedAmount:         c.FixedAmount,
		AutoDebitDay:        c.AutoDebitDay,
		NextExecutionAt:     c.NextExecutionAt,
		LastExecutionAt:     c.LastExecutionAt,
		LastExecutionStatus: string(c.LastExecutionStatus),
		LastFailedReason:    c.LastFailedReason,
		RetryCount:          c.RetryCount,
	}
}

package dto

import (
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SchedulePayoutRequest defines the data needed to schedule a cycle payout.
type SchedulePayoutRequest struct {
	CycleID           string          `json:"cycleId" binding:"required,uuid"`
	RecipientMemberID string          `json:"recipientMemberId" binding:"required,uuid"`
	Amount            decimal.Decimal `json:"amount" binding:"required,gt=0"`
	// ScheduledAt defaults to now.
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

// CancelPayoutRequest records why a payout was cancelled.
type CancelPayoutRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListPayoutsParams are the query parameters of the payout history endpoint.
type ListPayoutsParams struct {
	ChamaID     string `form:"chamaId" binding:"omitempty,uuid"`
	CycleID     string `form:"cycleId" binding:"omitempty,uuid"`
	RecipientID string `form:"recipientId" binding:"omitempty,uuid"`
	Status      string `form:"status" binding:"omitempty,payout_status"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ToFilter converts the query parameters into a domain filter.
func (p ListPayoutsParams) ToFilter() domain.PayoutFilter {
	var filter domain.PayoutFilter
	if p.ChamaID != "" {
		filter.ChamaID = &p.ChamaID
	}
	if p.CycleID != "" {
		filter.CycleID = &p.CycleID
	}
	if p.RecipientID != "" {
		filter.RecipientMemberID = &p.RecipientID
	}
	if p.Status != "" {
		status := domain.PayoutStatus(p.Status)
		filter.Status = &status
	}
	return filter
}

// PayoutResponse defines the data returned for a payout.
type PayoutResponse struct {
	ID                 string          `json:"id"`
	ChamaID            string          `json:"chamaId"`
	CycleID            string          `json:"cycleId"`
	RecipientMemberID  string          `json:"recipientMemberId"`
	Amount             decimal.Decimal `json:"amount"`
	Status             string          `json:"status"`
	ScheduledAt        time.Time       `json:"scheduledAt"`
	ExecutedAt         *time.Time      `json:"executedAt,omitempty"`
	TransactionID      *string         `json:"transactionId,omitempty"`
	RetryCount         int             `json:"retryCount"`
	FailedReason       *string         `json:"failedReason,omitempty"`
	CancelledReason    *string         `json:"cancelledReason,omitempty"`
	RotationPositionID *string         `json:"rotationPositionId,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// PayoutHistoryResponse is one page of payout history.
type PayoutHistoryResponse struct {
	Payouts []PayoutResponse `json:"payouts"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	Total   int              `json:"total"`
}

// ToPayoutResponse converts a domain.Payout to PayoutResponse DTO.
func ToPayoutResponse(p *domain.Payout) PayoutResponse {
	return PayoutResponse{
		ID:                 p.ID,
		ChamaID:            p.ChamaID,
		CycleID:            p.CycleID,
		RecipientMemberID:  p.RecipientMemberID,
		Amount:             p.Amount,
		Status:             string(p.Status),
		ScheduledAt:        p.ScheduledAt,
		ExecutedAt:         p.ExecutedAt,
		TransactionID:      p.TransactionID,
		RetryCount:         p.RetryCount,
		FailedReason:       p.FailedReason,
		CancelledReason:    p.CancelledReason,
		RotationPositionID: p.RotationPositionID,
		CreatedAt:          p.CreatedAt,
	}
}

// ToPayoutHistoryResponse converts a domain.PayoutPage.
func ToPayoutHistoryResponse(page *domain.PayoutPage) PayoutHistoryResponse {
	payouts := make([]PayoutResponse, len(page.Payouts))
	for i := range page.Payouts {
		payouts[i] = ToPayoutResponse(&page.Payouts[i])
	}
	return PayoutHistoryResponse{
		Payouts: payouts,
		Page:    page.Page,
		Limit:   page.Limit,
		Total:   page.Total,
	}
}

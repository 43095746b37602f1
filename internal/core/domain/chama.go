package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MemberStatus is the membership state of a chama member.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// Chama is the savings group read model. It is owned by the membership
// service; this engine only reads it.
type Chama struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	ContributionAmount decimal.Decimal `json:"contributionAmount"`
	Currency           string          `json:"currency"`
	AutoPayout         bool            `json:"autoPayout"`
}

// Member is a chama member. Lists of members are always returned in join order.
type Member struct {
	ID       string       `json:"id"`
	ChamaID  string       `json:"chamaId"`
	UserID   string       `json:"userId"`
	Name     string       `json:"name"`
	Phone    string       `json:"phone"`
	Email    string       `json:"email"`
	Status   MemberStatus `json:"status"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// IsActive reports whether the member currently participates in the chama.
func (m Member) IsActive() bool {
	return m.Status == MemberActive
}

// MemberMetrics feeds the merit rotation policy.
type MemberMetrics struct {
	MemberID            string  `json:"memberId"`
	OnTimeRate          float64 `json:"onTimeRate"`    // 0..1
	ActivityScore       float64 `json:"activityScore"` // 0..100
	PendingPenaltyCount int     `json:"pendingPenaltyCount"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Chama is a row of the chamas table. The membership service owns it.
type Chama struct {
	ChamaID            string          `db:"chama_id"`
	Name               string          `db:"name"`
	ContributionAmount decimal.Decimal `db:"contribution_amount"`
	Currency           string          `db:"currency"`
	AutoPayout         bool            `db:"auto_payout"`
}

// Member is a row of the chama_members table.
type Member struct {
	MemberID string    `db:"member_id"`
	ChamaID  string    `db:"chama_id"`
	UserID   string    `db:"user_id"`
	FullName string    `db:"full_name"`
	Phone    string    `db:"phone"`
	Email    string    `db:"email"`
	Status   string    `db:"status"`
	JoinedAt time.Time `db:"joined_at"`
}

// MemberMetrics is a row of the member_metrics table.
type MemberMetrics struct {
	MemberID         string  `db:"member_id"`
	OnTimeRate       float64 `db:"on_time_rate"`
	ActivityScore    float64 `db:"activity_score"`
	PendingPenalties int     `db:"pending_penalties"`
}

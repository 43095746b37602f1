package models

import "time"

// RotationOrder is a row of the rotation_orders table.
type RotationOrder struct {
	RotationOrderID     string     `db:"rotation_order_id"`
	ChamaID             string     `db:"chama_id"`
	Policy              string     `db:"policy"`
	CycleDurationMonths int        `db:"cycle_duration_months"`
	CurrentPosition     int        `db:"current_position"`
	TotalPositions      int        `db:"total_positions"`
	Status              string     `db:"status"`
	StartDate           time.Time  `db:"start_date"`
	CompletedAt         *time.Time `db:"completed_at"`
	AuditFields
}

// RotationPosition is a row of the rotation_positions table.
type RotationPosition struct {
	PositionID      string     `db:"position_id"`
	RotationOrderID string     `db:"rotation_order_id"`
	MemberID        string     `db:"member_id"`
	Position        int        `db:"position"`
	Status          string     `db:"status"`
	MeritScore      *float64   `db:"merit_score"`
	Note            *string    `db:"note"`
	CompletedAt     *time.Time `db:"completed_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

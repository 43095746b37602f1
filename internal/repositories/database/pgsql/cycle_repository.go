package pgsql

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
	"github.com/amkoya-stack/cycles-sub000/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxCycleRepository struct {
	BaseRepository
}

// newPgxCycleRepository creates a new repository for contribution cycles and contributions.
func newPgxCycleRepository(pool *pgxpool.Pool) portsrepo.CycleRepositoryWithTx {
	return &PgxCycleRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CycleRepositoryWithTx = (*PgxCycleRepository)(nil)

const (
	activeCycleIndex      = "ux_contribution_cycles_active_chama"
	cycleNumberConstraint = "uq_contribution_cycles_order_number"
	completedContribIndex = "ux_contributions_completed_member"

	selectCycleFields = `
		cy.cycle_id, cy.chama_id, cy.rotation_order_id, cy.cycle_number, cy.expected_amount,
		cy.collected_amount, cy.start_date, cy.due_date, cy.payout_recipient_position_id,
		cy.status, cy.completed_at, cy.payout_executed_at, cy.created_at`

	selectContributionFields = `
		c.contribution_id, c.cycle_id, c.chama_id, c.member_id, c.amount, c.status,
		c.transaction_id, c.payment_method, c.reference, c.contributed_at`

	selectCycleQuery = `SELECT ` + selectCycleFields + `
		FROM contribution_cycles cy
		WHERE cy.cycle_id = $1`

	lockCycleQuery = selectCycleQuery + ` FOR UPDATE`

	selectActiveCycleQuery = `SELECT ` + selectCycleFields + `
		FROM contribution_cycles cy
		WHERE cy.chama_id = $1 AND cy.status = 'active'`

	// Cycles whose unpaid members all hold the current reminder kind drop out,
	// so a backlog of overdue cycles cannot hide cycles entering their window.
	listCyclesAwaitingRemindersQuery = `SELECT ` + selectCycleFields + `
		FROM contribution_cycles cy
		WHERE cy.status = 'active' AND cy.due_date < $2
		  AND EXISTS (
			SELECT 1 FROM chama_members m
			WHERE m.chama_id = cy.chama_id AND m.status = 'active'
			  AND NOT EXISTS (
				SELECT 1 FROM contributions c
				WHERE c.cycle_id = cy.cycle_id AND c.member_id = m.member_id AND c.status = 'completed')
			  AND NOT EXISTS (
				SELECT 1 FROM contribution_reminders r
				WHERE r.cycle_id = cy.cycle_id AND r.member_id = m.member_id
				  AND r.kind = CASE WHEN cy.due_date <= $1 THEN 'overdue' ELSE 'due_soon' END))
		ORDER BY cy.due_date, cy.cycle_id
		LIMIT $3`

	listContributionsQuery = `SELECT ` + selectContributionFields + `
		FROM contributions c
		WHERE c.cycle_id = $1
		ORDER BY c.contributed_at, c.contribution_id`

	listCompletedContributionsQuery = `SELECT ` + selectContributionFields + `
		FROM contributions c
		WHERE c.cycle_id = $1 AND c.status = 'completed'
		ORDER BY c.contributed_at, c.contribution_id`

	hasCompletedContributionQuery = `SELECT EXISTS (
		SELECT 1 FROM contributions
		WHERE cycle_id = $1 AND member_id = $2 AND status = 'completed')`

	listUnpaidMembersQuery = `SELECT ` + selectMemberFields + `
		FROM contribution_cycles cy
		JOIN chama_members m ON m.chama_id = cy.chama_id AND m.status = 'active'
		WHERE cy.cycle_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM contributions c
			WHERE c.cycle_id = cy.cycle_id AND c.member_id = m.member_id AND c.status = 'completed')
		ORDER BY m.joined_at, m.member_id`

	countUnpaidQuery = `
		SELECT
			COUNT(*) FILTER (WHERE c.contribution_id IS NULL),
			COUNT(*)
		FROM chama_members m
		LEFT JOIN contributions c
			ON c.member_id = m.member_id AND c.cycle_id = $2 AND c.status = 'completed'
		WHERE m.chama_id = $1 AND m.status = 'active'`

	insertCycleQuery = `
		INSERT INTO contribution_cycles (
			cycle_id, chama_id, rotation_order_id, cycle_number, expected_amount,
			collected_amount, start_date, due_date, payout_recipient_position_id,
			status, completed_at, payout_executed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateCycleQuery = `
		UPDATE contribution_cycles
		SET collected_amount = $2, payout_recipient_position_id = $3, status = $4,
			completed_at = $5, payout_executed_at = $6
		WHERE cycle_id = $1`

	addCollectedQuery = `
		UPDATE contribution_cycles
		SET collected_amount = collected_amount + $2
		WHERE cycle_id = $1`

	insertContributionQuery = `
		INSERT INTO contributions (
			contribution_id, cycle_id, chama_id, member_id, amount, status,
			transaction_id, payment_method, reference, contributed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)

func (r *PgxCycleRepository) FindCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	row, err := collectOne[models.ContributionCycle](r.Pool.Query(ctx, selectCycleQuery, cycleID))
	if err != nil {
		return nil, lookupError(err, "cycle", cycleID)
	}
	cycle := mapping.ToDomainCycle(row)
	return &cycle, nil
}

func (r *PgxCycleRepository) FindActiveCycleByChama(ctx context.Context, chamaID string) (*domain.ContributionCycle, error) {
	row, err := collectOne[models.ContributionCycle](r.Pool.Query(ctx, selectActiveCycleQuery, chamaID))
	if err != nil {
		return nil, lookupError(err, "active cycle", chamaID)
	}
	cycle := mapping.ToDomainCycle(row)
	return &cycle, nil
}

func (r *PgxCycleRepository) ListContributions(ctx context.Context, cycleID string) ([]domain.Contribution, error) {
	rows, err := collectAll[models.Contribution](r.Pool.Query(ctx, listContributionsQuery, cycleID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list contributions", err).With("cycleId", cycleID)
	}
	return mapping.ToDomainContributionSlice(rows), nil
}

func (r *PgxCycleRepository) HasCompletedContribution(ctx context.Context, cycleID, memberID string) (bool, error) {
	var exists bool
	if err := r.Pool.QueryRow(ctx, hasCompletedContributionQuery, cycleID, memberID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check contribution", err).
			With("cycleId", cycleID).
			With("memberId", memberID)
	}
	return exists, nil
}

func (r *PgxCycleRepository) ListCyclesAwaitingReminders(ctx context.Context, now, cutoff time.Time, limit int) ([]domain.ContributionCycle, error) {
	rows, err := collectAll[models.ContributionCycle](r.Pool.Query(ctx, listCyclesAwaitingRemindersQuery, now, cutoff, limit))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list due cycles", err)
	}
	return mapping.ToDomainCycleSlice(rows), nil
}

func (r *PgxCycleRepository) ListUnpaidMembers(ctx context.Context, cycleID string) ([]domain.Member, error) {
	rows, err := collectAll[models.Member](r.Pool.Query(ctx, listUnpaidMembersQuery, cycleID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list unpaid members", err).With("cycleId", cycleID)
	}
	return mapping.ToDomainMemberSlice(rows), nil
}

func (r *PgxCycleRepository) CreateCycleInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) error {
	m := mapping.ToModelCycle(cycle)
	_, err := tx.Exec(ctx, insertCycleQuery,
		m.CycleID, m.ChamaID, m.RotationOrderID, m.CycleNumber, m.ExpectedAmount,
		m.CollectedAmount, m.StartDate, m.DueDate, m.PayoutRecipientPositionID,
		m.Status, m.CompletedAt, m.PayoutExecutedAt, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, activeCycleIndex) || isUniqueViolation(err, cycleNumberConstraint) {
			return apperrors.NewAppError(409, "chama already has an open cycle", apperrors.ErrConflict).
				With("chamaId", cycle.ChamaID)
		}
		return apperrors.NewAppError(500, "failed to insert cycle", err).With("id", cycle.ID)
	}
	return nil
}

func (r *PgxCycleRepository) LockCycleInTx(ctx context.Context, tx pgx.Tx, cycleID string) (*domain.ContributionCycle, error) {
	row, err := collectOne[models.ContributionCycle](tx.Query(ctx, lockCycleQuery, cycleID))
	if err != nil {
		return nil, lookupError(err, "cycle", cycleID)
	}
	cycle := mapping.ToDomainCycle(row)
	return &cycle, nil
}

func (r *PgxCycleRepository) UpdateCycleInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) error {
	m := mapping.ToModelCycle(cycle)
	tag, err := tx.Exec(ctx, updateCycleQuery,
		m.CycleID, m.CollectedAmount, m.PayoutRecipientPositionID, m.Status,
		m.CompletedAt, m.PayoutExecutedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update cycle", err).With("id", cycle.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("cycle", cycle.ID)
	}
	return nil
}

func (r *PgxCycleRepository) AddCollectedInTx(ctx context.Context, tx pgx.Tx, cycleID string, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx, addCollectedQuery, cycleID, amount)
	if err != nil {
		return apperrors.NewAppError(500, "failed to add collected amount", err).With("id", cycleID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("cycle", cycleID)
	}
	return nil
}

func (r *PgxCycleRepository) SaveContributionInTx(ctx context.Context, tx pgx.Tx, contribution domain.Contribution) error {
	m := mapping.ToModelContribution(contribution)
	_, err := tx.Exec(ctx, insertContributionQuery,
		m.ContributionID, m.CycleID, m.ChamaID, m.MemberID, m.Amount, m.Status,
		m.TransactionID, m.PaymentMethod, m.Reference, m.ContributedAt,
	)
	if err != nil {
		if isUniqueViolation(err, completedContribIndex) {
			return apperrors.ErrAlreadyContributed
		}
		return apperrors.NewAppError(500, "failed to insert contribution", err).With("id", contribution.ID)
	}
	return nil
}

func (r *PgxCycleRepository) CountUnpaidInTx(ctx context.Context, tx pgx.Tx, cycle domain.ContributionCycle) (int, int, error) {
	var unpaid, total int
	if err := tx.QueryRow(ctx, countUnpaidQuery, cycle.ChamaID, cycle.ID).Scan(&unpaid, &total); err != nil {
		return 0, 0, apperrors.NewAppError(500, "failed to count unpaid members", err).With("cycleId", cycle.ID)
	}
	return unpaid, total, nil
}

func (r *PgxCycleRepository) ListCompletedContributionsInTx(ctx context.Context, tx pgx.Tx, cycleID string) ([]domain.Contribution, error) {
	rows, err := collectAll[models.Contribution](tx.Query(ctx, listCompletedContributionsQuery, cycleID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list completed contributions", err).With("cycleId", cycleID)
	}
	return mapping.ToDomainContributionSlice(rows), nil
}

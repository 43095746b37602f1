package pgsql

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
	"github.com/amkoya-stack/cycles-sub000/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxPayoutRepository struct {
	BaseRepository
}

// newPgxPayoutRepository creates a new repository for payouts and their distributions.
func newPgxPayoutRepository(pool *pgxpool.Pool) portsrepo.PayoutRepositoryWithTx {
	return &PgxPayoutRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PayoutRepositoryWithTx = (*PgxPayoutRepository)(nil)

const (
	activePayoutIndex = "ux_payouts_active_cycle"

	payoutColumns = `
		payout_id, chama_id, cycle_id, recipient_member_id, amount, status, scheduled_at,
		executed_at, transaction_id, external_reference, retry_count, failed_reason,
		last_failed_at, cancelled_reason, rotation_position_id,
		created_at, created_by, last_updated_at, last_updated_by`

	selectPayoutQuery = `SELECT ` + payoutColumns + `
		FROM payouts
		WHERE payout_id = $1`

	lockPayoutQuery = selectPayoutQuery + ` FOR UPDATE`

	listDistributionsQuery = `
		SELECT distribution_id, payout_id, contribution_id, amount, created_at
		FROM payout_distributions
		WHERE payout_id = $1
		ORDER BY created_at, distribution_id`

	existsActivePayoutQuery = `SELECT EXISTS (
		SELECT 1 FROM payouts WHERE cycle_id = $1 AND status <> 'cancelled')`

	insertPayoutQuery = `
		INSERT INTO payouts (
			payout_id, chama_id, cycle_id, recipient_member_id, amount, status, scheduled_at,
			executed_at, transaction_id, external_reference, retry_count, failed_reason,
			last_failed_at, cancelled_reason, rotation_position_id,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	insertDistributionQuery = `
		INSERT INTO payout_distributions (distribution_id, payout_id, contribution_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	updatePayoutQuery = `
		UPDATE payouts
		SET status = $2, scheduled_at = $3, executed_at = $4, transaction_id = $5,
			external_reference = $6, retry_count = $7, failed_reason = $8, last_failed_at = $9,
			cancelled_reason = $10, last_updated_at = $11, last_updated_by = $12,
			claimed_until = NULL
		WHERE payout_id = $1`

	// Due and retryable claims share one shape: pick unleased rows with SKIP LOCKED
	// so concurrent sweeps never see the same payout, then stamp the lease.
	claimDuePayoutsQuery = `
		WITH due AS (
			SELECT payout_id AS due_id
			FROM payouts
			WHERE ((status = 'pending' AND scheduled_at <= $1)
			    OR (status = 'processing' AND last_updated_at <= $4))
			  AND (claimed_until IS NULL OR claimed_until <= $1)
			ORDER BY scheduled_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE payouts SET claimed_until = $2
		FROM due
		WHERE payouts.payout_id = due.due_id
		RETURNING ` + payoutColumns

	claimRetryablePayoutsQuery = `
		WITH due AS (
			SELECT payout_id AS due_id
			FROM payouts
			WHERE status = 'failed' AND retry_count < $3 AND last_failed_at <= $4
			  AND (claimed_until IS NULL OR claimed_until <= $1)
			ORDER BY last_failed_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		UPDATE payouts SET claimed_until = $2
		FROM due
		WHERE payouts.payout_id = due.due_id
		RETURNING ` + payoutColumns
)

func (r *PgxPayoutRepository) FindPayoutByID(ctx context.Context, payoutID string) (*domain.Payout, error) {
	row, err := collectOne[models.Payout](r.Pool.Query(ctx, selectPayoutQuery, payoutID))
	if err != nil {
		return nil, lookupError(err, "payout", payoutID)
	}
	payout := mapping.ToDomainPayout(row)
	return &payout, nil
}

// payoutFilterClause renders filter as a WHERE clause with positional args.
func payoutFilterClause(filter domain.PayoutFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	if filter.ChamaID != nil {
		add("chama_id", *filter.ChamaID)
	}
	if filter.CycleID != nil {
		add("cycle_id", *filter.CycleID)
	}
	if filter.RecipientMemberID != nil {
		add("recipient_member_id", *filter.RecipientMemberID)
	}
	if filter.Status != nil {
		add("status", string(*filter.Status))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PgxPayoutRepository) ListPayouts(ctx context.Context, filter domain.PayoutFilter, limit, offset int) ([]domain.Payout, int, error) {
	where, args := payoutFilterClause(filter)

	var total int
	if err := r.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM payouts"+where, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewAppError(500, "failed to count payouts", err)
	}

	n := len(args)
	query := "SELECT " + payoutColumns + " FROM payouts" + where +
		" ORDER BY created_at DESC, payout_id" +
		" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	rows, err := collectAll[models.Payout](r.Pool.Query(ctx, query, append(args, limit, offset)...))
	if err != nil {
		return nil, 0, apperrors.NewAppError(500, "failed to list payouts", err)
	}
	return mapping.ToDomainPayoutSlice(rows), total, nil
}

func (r *PgxPayoutRepository) ListDistributions(ctx context.Context, payoutID string) ([]domain.PayoutDistribution, error) {
	rows, err := collectAll[models.PayoutDistribution](r.Pool.Query(ctx, listDistributionsQuery, payoutID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list payout distributions", err).With("payoutId", payoutID)
	}
	out := make([]domain.PayoutDistribution, len(rows))
	for i, row := range rows {
		out[i] = mapping.ToDomainPayoutDistribution(row)
	}
	return out, nil
}

func (r *PgxPayoutRepository) ClaimDuePayouts(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.Payout, error) {
	rows, err := collectAll[models.Payout](r.Pool.Query(ctx, claimDuePayoutsQuery, now, now.Add(lease), limit, now.Add(-lease)))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to claim due payouts", err)
	}
	payouts := mapping.ToDomainPayoutSlice(rows)
	slices.SortFunc(payouts, func(a, b domain.Payout) int { return a.ScheduledAt.Compare(b.ScheduledAt) })
	return payouts, nil
}

func (r *PgxPayoutRepository) ClaimRetryablePayouts(ctx context.Context, now time.Time, cooldown time.Duration, maxRetries int, lease time.Duration, limit int) ([]domain.Payout, error) {
	rows, err := collectAll[models.Payout](r.Pool.Query(ctx, claimRetryablePayoutsQuery,
		now, now.Add(lease), maxRetries, now.Add(-cooldown), limit))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to claim retryable payouts", err)
	}
	payouts := mapping.ToDomainPayoutSlice(rows)
	slices.SortFunc(payouts, func(a, b domain.Payout) int { return a.LastFailedAt.Compare(*b.LastFailedAt) })
	return payouts, nil
}

func (r *PgxPayoutRepository) ExistsActivePayoutForCycleInTx(ctx context.Context, tx pgx.Tx, cycleID string) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, existsActivePayoutQuery, cycleID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check existing payout", err).With("cycleId", cycleID)
	}
	return exists, nil
}

func (r *PgxPayoutRepository) CreatePayoutInTx(ctx context.Context, tx pgx.Tx, payout domain.Payout, distributions []domain.PayoutDistribution) error {
	m := mapping.ToModelPayout(payout)
	_, err := tx.Exec(ctx, insertPayoutQuery,
		m.PayoutID, m.ChamaID, m.CycleID, m.RecipientMemberID, m.Amount, m.Status, m.ScheduledAt,
		m.ExecutedAt, m.TransactionID, m.ExternalReference, m.RetryCount, m.FailedReason,
		m.LastFailedAt, m.CancelledReason, m.RotationPositionID,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err, activePayoutIndex) {
			return apperrors.ErrDuplicatePayout
		}
		return apperrors.NewAppError(500, "failed to insert payout", err).With("id", payout.ID)
	}

	if len(distributions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range distributions {
		dm := mapping.ToModelPayoutDistribution(d)
		batch.Queue(insertDistributionQuery, dm.DistributionID, dm.PayoutID, dm.ContributionID, dm.Amount, dm.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert payout distributions", err).With("id", payout.ID)
	}
	return nil
}

func (r *PgxPayoutRepository) LockPayoutInTx(ctx context.Context, tx pgx.Tx, payoutID string) (*domain.Payout, error) {
	row, err := collectOne[models.Payout](tx.Query(ctx, lockPayoutQuery, payoutID))
	if err != nil {
		return nil, lookupError(err, "payout", payoutID)
	}
	payout := mapping.ToDomainPayout(row)
	return &payout, nil
}

func (r *PgxPayoutRepository) UpdatePayoutInTx(ctx context.Context, tx pgx.Tx, payout domain.Payout) error {
	m := mapping.ToModelPayout(payout)
	tag, err := tx.Exec(ctx, updatePayoutQuery,
		m.PayoutID, m.Status, m.ScheduledAt, m.ExecutedAt, m.TransactionID,
		m.ExternalReference, m.RetryCount, m.FailedReason, m.LastFailedAt,
		m.CancelledReason, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update payout", err).With("id", payout.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payout", payout.ID)
	}
	return nil
}

package pgsql

import (
	"context"
	"slices"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
	"github.com/amkoya-stack/cycles-sub000/internal/utils/mapping"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAutoDebitRepository struct {
	BaseRepository
}

// newPgxAutoDebitRepository creates a new repository for auto-debit configs.
func newPgxAutoDebitRepository(pool *pgxpool.Pool) portsrepo.AutoDebitRepositoryFacade {
	return &PgxAutoDebitRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AutoDebitRepositoryFacade = (*PgxAutoDebitRepository)(nil)

const (
	autoDebitColumns = `
		auto_debit_id, chama_id, member_id, enabled, payment_method, amount_type, fixed_amount,
		auto_debit_day, next_execution_at, last_execution_at, last_execution_status,
		last_failed_reason, retry_count, claimed_until, created_at, updated_at`

	selectAutoDebitByIDQuery = `SELECT ` + autoDebitColumns + `
		FROM auto_debits
		WHERE auto_debit_id = $1`

	selectAutoDebitByMemberQuery = `SELECT ` + autoDebitColumns + `
		FROM auto_debits
		WHERE chama_id = $1 AND member_id = $2`

	upsertAutoDebitQuery = `
		INSERT INTO auto_debits (
			auto_debit_id, chama_id, member_id, enabled, payment_method, amount_type, fixed_amount,
			auto_debit_day, next_execution_at, last_execution_at, last_execution_status,
			last_failed_reason, retry_count, claimed_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL, $14, $15)
		ON CONFLICT (chama_id, member_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
			payment_method = EXCLUDED.payment_method,
			amount_type = EXCLUDED.amount_type,
			fixed_amount = EXCLUDED.fixed_amount,
			auto_debit_day = EXCLUDED.auto_debit_day,
			next_execution_at = EXCLUDED.next_execution_at,
			last_execution_at = EXCLUDED.last_execution_at,
			last_execution_status = EXCLUDED.last_execution_status,
			last_failed_reason = EXCLUDED.last_failed_reason,
			retry_count = EXCLUDED.retry_count,
			updated_at = EXCLUDED.updated_at`

	// Configs whose last run failed wait out the cooldown before they are claimed again.
	claimDueAutoDebitsQuery = `
		WITH due AS (
			SELECT auto_debit_id AS due_id
			FROM auto_debits
			WHERE enabled AND next_execution_at <= $1
			  AND (claimed_until IS NULL OR claimed_until <= $1)
			  AND NOT (last_execution_status = 'failed' AND last_execution_at > $3)
			ORDER BY next_execution_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		UPDATE auto_debits SET claimed_until = $2
		FROM due
		WHERE auto_debits.auto_debit_id = due.due_id
		RETURNING ` + autoDebitColumns

	saveExecutionResultQuery = `
		UPDATE auto_debits
		SET enabled = $2, next_execution_at = $3, last_execution_at = $4,
			last_execution_status = $5, last_failed_reason = $6, retry_count = $7,
			updated_at = $8, claimed_until = NULL
		WHERE auto_debit_id = $1`
)

func (r *PgxAutoDebitRepository) FindAutoDebitByID(ctx context.Context, configID string) (*domain.AutoDebitConfig, error) {
	row, err := collectOne[models.AutoDebit](r.Pool.Query(ctx, selectAutoDebitByIDQuery, configID))
	if err != nil {
		return nil, lookupError(err, "auto-debit", configID)
	}
	cfg := mapping.ToDomainAutoDebit(row)
	return &cfg, nil
}

func (r *PgxAutoDebitRepository) FindAutoDebitByMember(ctx context.Context, chamaID, memberID string) (*domain.AutoDebitConfig, error) {
	row, err := collectOne[models.AutoDebit](r.Pool.Query(ctx, selectAutoDebitByMemberQuery, chamaID, memberID))
	if err != nil {
		return nil, lookupError(err, "auto-debit", memberID)
	}
	cfg := mapping.ToDomainAutoDebit(row)
	return &cfg, nil
}

func (r *PgxAutoDebitRepository) UpsertAutoDebit(ctx context.Context, cfg domain.AutoDebitConfig) error {
	m := mapping.ToModelAutoDebit(cfg)
	_, err := r.Pool.Exec(ctx, upsertAutoDebitQuery,
		m.AutoDebitID, m.ChamaID, m.MemberID, m.Enabled, m.PaymentMethod, m.AmountType, m.FixedAmount,
		m.AutoDebitDay, m.NextExecutionAt, m.LastExecutionAt, m.LastExecutionStatus,
		m.LastFailedReason, m.RetryCount, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save auto-debit", err).
			With("chamaId", cfg.ChamaID).
			With("memberId", cfg.MemberID)
	}
	return nil
}

func (r *PgxAutoDebitRepository) ClaimDueAutoDebits(ctx context.Context, now time.Time, cooldown, lease time.Duration, limit int) ([]domain.AutoDebitConfig, error) {
	rows, err := collectAll[models.AutoDebit](r.Pool.Query(ctx, claimDueAutoDebitsQuery,
		now, now.Add(lease), now.Add(-cooldown), limit))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to claim due auto-debits", err)
	}
	out := make([]domain.AutoDebitConfig, len(rows))
	for i, row := range rows {
		out[i] = mapping.ToDomainAutoDebit(row)
	}
	slices.SortFunc(out, func(a, b domain.AutoDebitConfig) int { return a.NextExecutionAt.Compare(b.NextExecutionAt) })
	return out, nil
}

func (r *PgxAutoDebitRepository) SaveExecutionResult(ctx context.Context, cfg domain.AutoDebitConfig) error {
	m := mapping.ToModelAutoDebit(cfg)
	tag, err := r.Pool.Exec(ctx, saveExecutionResultQuery,
		m.AutoDebitID, m.Enabled, m.NextExecutionAt, m.LastExecutionAt,
		m.LastExecutionStatus, m.LastFailedReason, m.RetryCount, m.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save auto-debit result", err).With("id", cfg.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("auto-debit", cfg.ID)
	}
	return nil
}

package pgsql

import (
	"context"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
	"github.com/amkoya-stack/cycles-sub000/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxRotationRepository struct {
	BaseRepository
}

// newPgxRotationRepository creates a new repository for rotation orders and positions.
func newPgxRotationRepository(pool *pgxpool.Pool) portsrepo.RotationRepositoryWithTx {
	return &PgxRotationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.RotationRepositoryWithTx = (*PgxRotationRepository)(nil)

const (
	activeRotationIndex = "ux_rotation_orders_active_chama"

	selectRotationFields = `
		o.rotation_order_id, o.chama_id, o.policy, o.cycle_duration_months, o.current_position,
		o.total_positions, o.status, o.start_date, o.completed_at,
		o.created_at, o.created_by, o.last_updated_at, o.last_updated_by`

	selectPositionFields = `
		p.position_id, p.rotation_order_id, p.member_id, p.position, p.status,
		p.merit_score, p.note, p.completed_at, p.updated_at`

	selectActiveRotationQuery = `SELECT ` + selectRotationFields + `
		FROM rotation_orders o
		WHERE o.chama_id = $1 AND o.status = 'active'`

	selectRotationQuery = `SELECT ` + selectRotationFields + `
		FROM rotation_orders o
		WHERE o.rotation_order_id = $1`

	lockRotationQuery = selectRotationQuery + ` FOR UPDATE`

	selectPositionQuery = `SELECT ` + selectPositionFields + `
		FROM rotation_positions p
		WHERE p.position_id = $1`

	listPositionsQuery = `SELECT ` + selectPositionFields + `
		FROM rotation_positions p
		WHERE p.rotation_order_id = $1
		ORDER BY p.position`

	lockPositionsQuery = listPositionsQuery + ` FOR UPDATE`

	hasActiveRotationQuery = `SELECT EXISTS (
		SELECT 1 FROM rotation_orders WHERE chama_id = $1 AND status = 'active')`

	insertRotationQuery = `
		INSERT INTO rotation_orders (
			rotation_order_id, chama_id, policy, cycle_duration_months, current_position,
			total_positions, status, start_date, completed_at,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	insertPositionQuery = `
		INSERT INTO rotation_positions (
			position_id, rotation_order_id, member_id, position, status,
			merit_score, note, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateRotationQuery = `
		UPDATE rotation_orders
		SET current_position = $2, total_positions = $3, status = $4, completed_at = $5,
			last_updated_at = $6, last_updated_by = $7
		WHERE rotation_order_id = $1`

	updatePositionQuery = `
		UPDATE rotation_positions
		SET member_id = $2, position = $3, status = $4, merit_score = $5, note = $6,
			completed_at = $7, updated_at = $8
		WHERE position_id = $1`
)

func (r *PgxRotationRepository) FindActiveRotationByChama(ctx context.Context, chamaID string) (*domain.RotationOrder, error) {
	row, err := collectOne[models.RotationOrder](r.Pool.Query(ctx, selectActiveRotationQuery, chamaID))
	if err != nil {
		return nil, lookupError(err, "active rotation", chamaID)
	}
	order := mapping.ToDomainRotationOrder(row)
	return &order, nil
}

func (r *PgxRotationRepository) FindRotationByID(ctx context.Context, rotationOrderID string) (*domain.RotationOrder, error) {
	row, err := collectOne[models.RotationOrder](r.Pool.Query(ctx, selectRotationQuery, rotationOrderID))
	if err != nil {
		return nil, lookupError(err, "rotation", rotationOrderID)
	}
	order := mapping.ToDomainRotationOrder(row)
	return &order, nil
}

func (r *PgxRotationRepository) FindPositionByID(ctx context.Context, positionID string) (*domain.RotationPosition, error) {
	return r.findPosition(ctx, r.Pool, positionID)
}

func (r *PgxRotationRepository) FindPositionInTx(ctx context.Context, tx pgx.Tx, positionID string) (*domain.RotationPosition, error) {
	return r.findPosition(ctx, tx, positionID)
}

func (r *PgxRotationRepository) findPosition(ctx context.Context, q querier, positionID string) (*domain.RotationPosition, error) {
	row, err := collectOne[models.RotationPosition](q.Query(ctx, selectPositionQuery, positionID))
	if err != nil {
		return nil, lookupError(err, "rotation position", positionID)
	}
	position := mapping.ToDomainRotationPosition(row)
	return &position, nil
}

func (r *PgxRotationRepository) ListPositions(ctx context.Context, rotationOrderID string) ([]domain.RotationPosition, error) {
	rows, err := collectAll[models.RotationPosition](r.Pool.Query(ctx, listPositionsQuery, rotationOrderID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list rotation positions", err).With("id", rotationOrderID)
	}
	return mapping.ToDomainRotationPositionSlice(rows), nil
}

func (r *PgxRotationRepository) HasActiveRotationInTx(ctx context.Context, tx pgx.Tx, chamaID string) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, hasActiveRotationQuery, chamaID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check active rotation", err).With("chamaId", chamaID)
	}
	return exists, nil
}

func (r *PgxRotationRepository) CreateRotationInTx(ctx context.Context, tx pgx.Tx, order domain.RotationOrder, positions []domain.RotationPosition) error {
	m := mapping.ToModelRotationOrder(order)
	_, err := tx.Exec(ctx, insertRotationQuery,
		m.RotationOrderID, m.ChamaID, m.Policy, m.CycleDurationMonths, m.CurrentPosition,
		m.TotalPositions, m.Status, m.StartDate, m.CompletedAt,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err, activeRotationIndex) {
			return apperrors.ErrRotationAlreadyActive
		}
		return apperrors.NewAppError(500, "failed to insert rotation order", err).With("id", order.ID)
	}

	batch := &pgx.Batch{}
	for _, p := range positions {
		pm := mapping.ToModelRotationPosition(p)
		batch.Queue(insertPositionQuery,
			pm.PositionID, pm.RotationOrderID, pm.MemberID, pm.Position, pm.Status,
			pm.MeritScore, pm.Note, pm.CompletedAt, pm.UpdatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert rotation positions", err).With("id", order.ID)
	}
	return nil
}

func (r *PgxRotationRepository) LockRotationInTx(ctx context.Context, tx pgx.Tx, rotationOrderID string) (*domain.RotationOrder, []domain.RotationPosition, error) {
	row, err := collectOne[models.RotationOrder](tx.Query(ctx, lockRotationQuery, rotationOrderID))
	if err != nil {
		return nil, nil, lookupError(err, "rotation", rotationOrderID)
	}
	positions, err := collectAll[models.RotationPosition](tx.Query(ctx, lockPositionsQuery, rotationOrderID))
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to lock rotation positions", err).With("id", rotationOrderID)
	}
	order := mapping.ToDomainRotationOrder(row)
	return &order, mapping.ToDomainRotationPositionSlice(positions), nil
}

func (r *PgxRotationRepository) UpdateRotationInTx(ctx context.Context, tx pgx.Tx, order domain.RotationOrder) error {
	m := mapping.ToModelRotationOrder(order)
	tag, err := tx.Exec(ctx, updateRotationQuery,
		m.RotationOrderID, m.CurrentPosition, m.TotalPositions, m.Status, m.CompletedAt,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update rotation order", err).With("id", order.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("rotation", order.ID)
	}
	return nil
}

// UpdatePositionsInTx writes every position in one batch. The uniqueness of
// member and position number is checked at commit, so a swap may pass through
// a transient duplicate.
func (r *PgxRotationRepository) UpdatePositionsInTx(ctx context.Context, tx pgx.Tx, positions ...domain.RotationPosition) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range positions {
		pm := mapping.ToModelRotationPosition(p)
		batch.Queue(updatePositionQuery,
			pm.PositionID, pm.MemberID, pm.Position, pm.Status, pm.MeritScore, pm.Note,
			pm.CompletedAt, pm.UpdatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.NewAppError(500, "failed to update rotation positions", err)
	}
	return nil
}

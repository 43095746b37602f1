package repositories

import (
	"context"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// RotationReader defines read operations for rotation orders and positions.
type RotationReader interface {
	FindActiveRotationByChama(ctx context.Context, chamaID string) (*domain.RotationOrder, error)
	FindRotationByID(ctx context.Context, rotationOrderID string) (*domain.RotationOrder, error)
	FindPositionByID(ctx context.Context, positionID string) (*domain.RotationPosition, error)
	// ListPositions returns the order's positions sorted by position number.
	ListPositions(ctx context.Context, rotationOrderID string) ([]domain.RotationPosition, error)
}

// RotationWriter defines transactional write operations for rotations.
type RotationWriter interface {
	// HasActiveRotationInTx reports whether the chama already has an active order.
	HasActiveRotationInTx(ctx context.Context, tx pgx.Tx, chamaID string) (bool, error)

	// CreateRotationInTx inserts the order and its positions. A concurrent active
	// order for the same chama surfaces as apperrors.ErrRotationAlreadyActive.
	CreateRotationInTx(ctx context.Context, tx pgx.Tx, order domain.RotationOrder, positions []domain.RotationPosition) error

	// LockRotationInTx locks the order row and its positions with SELECT ... FOR UPDATE.
	LockRotationInTx(ctx context.Context, tx pgx.Tx, rotationOrderID string) (*domain.RotationOrder, []domain.RotationPosition, error)

	// FindPositionInTx returns a position without locking; lock its order first.
	FindPositionInTx(ctx context.Context, tx pgx.Tx, positionID string) (*domain.RotationPosition, error)

	UpdateRotationInTx(ctx context.Context, tx pgx.Tx, order domain.RotationOrder) error
	UpdatePositionsInTx(ctx context.Context, tx pgx.Tx, positions ...domain.RotationPosition) error
}

// RotationRepositoryFacade combines all rotation repository interfaces.
type RotationRepositoryFacade interface {
	RotationReader
	RotationWriter
}

// RotationRepositoryWithTx extends RotationRepositoryFacade with transaction capabilities.
type RotationRepositoryWithTx interface {
	RotationRepositoryFacade
	TransactionManager
}

package services

import (
	"context"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
)

// RotationReaderSvc defines read operations on rotations.
type RotationReaderSvc interface {
	// GetRotationStatus returns the chama's active rotation with its positions.
	GetRotationStatus(ctx context.Context, chamaID string) (*domain.RotationOverview, error)
	// GetNextRecipient returns the position currently due to be paid.
	GetNextRecipient(ctx context.Context, rotationOrderID string) (*domain.RotationPosition, error)
}

// RotationWriterSvc defines admin mutations on rotations.
type RotationWriterSvc interface {
	CreateRotation(ctx context.Context, req dto.CreateRotationRequest, actorID string) (*domain.RotationOverview, error)
	SkipPosition(ctx context.Context, positionID string, reason *string, actorID string) (*domain.RotationPosition, error)
	SwapPositions(ctx context.Context, positionA, positionB string, reason *string, actorID string) ([]domain.RotationPosition, error)
}

// RotationSvcFacade combines all rotation service interfaces.
type RotationSvcFacade interface {
	RotationReaderSvc
	RotationWriterSvc
	RotationAdvancer
}

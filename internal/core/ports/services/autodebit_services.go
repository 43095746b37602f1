package services

import (
	"context"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
)

// AutoDebitSvcFacade manages standing contribution instructions.
type AutoDebitSvcFacade interface {
	UpsertAutoDebit(ctx context.Context, req dto.UpsertAutoDebitRequest) (*domain.AutoDebitConfig, error)
	GetAutoDebit(ctx context.Context, chamaID, memberID string) (*domain.AutoDebitConfig, error)

	// ClaimDueAutoDebits leases a batch of due configs for the sweep.
	ClaimDueAutoDebits(ctx context.Context, now time.Time, limit int) ([]domain.AutoDebitConfig, error)
	// ExecuteAutoDebit runs one config and records the outcome. A genuine failure
	// is returned; once the breaker trips the error wraps apperrors.ErrMaxRetriesExceeded.
	ExecuteAutoDebit(ctx context.Context, configID string) (*domain.AutoDebitConfig, error)
}

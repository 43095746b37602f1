package services

import (
	"context"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/amkoya-stack/cycles-sub000/internal/dto"
	"github.com/shopspring/decimal"
)

// CycleSvcFacade is the contribution-cycle lifecycle manager.
type CycleSvcFacade interface {
	GetCycle(ctx context.Context, cycleID string) (*domain.ContributionCycle, error)
	GetActiveCycle(ctx context.Context, chamaID string) (*domain.ContributionCycle, error)

	// RecordContribution adds amount to the cycle's collected total.
	RecordContribution(ctx context.Context, cycleID string, amount decimal.Decimal) error
	// CheckCompletion closes the cycle once every active member has paid. It is a no-op on a completed cycle.
	CheckCompletion(ctx context.Context, cycleID string) (bool, error)
	// Contribute posts a member's contribution to the ledger and runs the completion check.
	Contribute(ctx context.Context, req dto.ContributeRequest) (*domain.Contribution, error)
}

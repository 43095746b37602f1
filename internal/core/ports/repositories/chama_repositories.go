package repositories

import (
	"context"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
)

// ChamaReader reads the chama and membership model owned by the membership service.
type ChamaReader interface {
	// FindChamaByID returns the chama or apperrors.ErrNotFound.
	FindChamaByID(ctx context.Context, chamaID string) (*domain.Chama, error)

	// ListActiveMembers returns active members in join order.
	ListActiveMembers(ctx context.Context, chamaID string) ([]domain.Member, error)

	// FindMemberByID returns a member or apperrors.ErrNotFound.
	FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error)

	// ListMemberMetrics returns merit inputs keyed by member ID.
	ListMemberMetrics(ctx context.Context, chamaID string) (map[string]domain.MemberMetrics, error)
}

package pgsql

import (
	"context"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/amkoya-stack/cycles-sub000/internal/models"
	"github.com/amkoya-stack/cycles-sub000/internal/utils/mapping"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxChamaRepository reads the chama and membership tables. Those tables are
// owned by the membership service; this engine never writes them.
type PgxChamaRepository struct {
	BaseRepository
}

func newPgxChamaRepository(pool *pgxpool.Pool) portsrepo.ChamaReader {
	return &PgxChamaRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ChamaReader = (*PgxChamaRepository)(nil)

const (
	selectMemberFields = `m.member_id, m.chama_id, m.user_id, m.full_name, m.phone, m.email, m.status, m.joined_at`

	selectChamaQuery = `
		SELECT chama_id, name, contribution_amount, currency, auto_payout
		FROM chamas
		WHERE chama_id = $1`

	listActiveMembersQuery = `
		SELECT ` + selectMemberFields + `
		FROM chama_members m
		WHERE m.chama_id = $1 AND m.status = 'active'
		ORDER BY m.joined_at, m.member_id`

	selectMemberQuery = `
		SELECT ` + selectMemberFields + `
		FROM chama_members m
		WHERE m.member_id = $1`

	listMemberMetricsQuery = `
		SELECT mm.member_id, mm.on_time_rate, mm.activity_score, mm.pending_penalties
		FROM member_metrics mm
		JOIN chama_members m ON m.member_id = mm.member_id
		WHERE m.chama_id = $1`
)

func (r *PgxChamaRepository) FindChamaByID(ctx context.Context, chamaID string) (*domain.Chama, error) {
	row, err := collectOne[models.Chama](r.Pool.Query(ctx, selectChamaQuery, chamaID))
	if err != nil {
		return nil, lookupError(err, "chama", chamaID)
	}
	chama := mapping.ToDomainChama(row)
	return &chama, nil
}

func (r *PgxChamaRepository) ListActiveMembers(ctx context.Context, chamaID string) ([]domain.Member, error) {
	rows, err := collectAll[models.Member](r.Pool.Query(ctx, listActiveMembersQuery, chamaID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list chama members", err).With("chamaId", chamaID)
	}
	return mapping.ToDomainMemberSlice(rows), nil
}

func (r *PgxChamaRepository) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	row, err := collectOne[models.Member](r.Pool.Query(ctx, selectMemberQuery, memberID))
	if err != nil {
		return nil, lookupError(err, "member", memberID)
	}
	member := mapping.ToDomainMember(row)
	return &member, nil
}

func (r *PgxChamaRepository) ListMemberMetrics(ctx context.Context, chamaID string) (map[string]domain.MemberMetrics, error) {
	rows, err := collectAll[models.MemberMetrics](r.Pool.Query(ctx, listMemberMetricsQuery, chamaID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list member metrics", err).With("chamaId", chamaID)
	}
	metrics := make(map[string]domain.MemberMetrics, len(rows))
	for _, row := range rows {
		metrics[row.MemberID] = mapping.ToDomainMemberMetrics(row)
	}
	return metrics, nil
}

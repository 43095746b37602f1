package pgsql

import (
	portsrepo "github.com/amkoya-stack/cycles-sub000/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ChamaRepo:     newPgxChamaRepository(dbPool),
		RotationRepo:  newPgxRotationRepository(dbPool),
		CycleRepo:     newPgxCycleRepository(dbPool),
		PayoutRepo:    newPgxPayoutRepository(dbPool),
		AutoDebitRepo: newPgxAutoDebitRepository(dbPool),
		ReminderRepo:  newPgxReminderRepository(dbPool),
	}
}

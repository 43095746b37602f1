package repositories

// RepositoryProvider holds all repository interfaces needed by services.
type RepositoryProvider struct {
	ChamaRepo     ChamaReader
	RotationRepo  RotationRepositoryWithTx
	CycleRepo     CycleRepositoryWithTx
	PayoutRepo    PayoutRepositoryWithTx
	AutoDebitRepo AutoDebitRepositoryFacade
	ReminderRepo  ReminderRepositoryFacade
}

package services

// ServiceContainer holds instances of all the application services.
// Handlers, the scheduler and the job worker all reach services through it.
type ServiceContainer struct {
	Rotation  RotationSvcFacade
	Cycle     CycleSvcFacade
	Payout    PayoutSvcFacade
	AutoDebit AutoDebitSvcFacade
	Reminder  ReminderSvcFacade
}

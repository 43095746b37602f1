package apperrors

import "fmt"

// Domain errors. Each wraps one of the kinds above so callers can match either level with errors.Is.
var (
	ErrNoMembers             = fmt.Errorf("%w: chama has no active members", ErrValidation)
	ErrRotationAlreadyActive = fmt.Errorf("%w: chama already has an active rotation", ErrConflict)
	ErrDuplicatePayout       = fmt.Errorf("%w: cycle already has a non-cancelled payout", ErrConflict)
	ErrAlreadyCancelled      = fmt.Errorf("%w: payout already cancelled", ErrConflict)
	ErrPositionCompleted     = fmt.Errorf("%w: rotation position already completed", ErrConflict)
	ErrAlreadyContributed    = fmt.Errorf("%w: member already contributed to this cycle", ErrConflict)
	ErrNoActiveCycle         = fmt.Errorf("%w: chama has no active cycle", ErrInvalidState)
)

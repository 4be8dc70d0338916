package application

import (
	"fmt"

	"laborbook/fault"
	"laborbook/posting"
)

var (
	ErrAlreadyApplied     = fmt.Errorf("application: already applied to this job: %w", fault.ErrConflict)
	ErrCapacityExceeded   = posting.ErrCapacityExceeded
	ErrPostingUnavailable = fmt.Errorf("application: job is no longer accepting applications: %w", fault.ErrConflict)
	ErrInvalidTransition  = fmt.Errorf("application: invalid status transition: %w", fault.ErrConflict)
	ErrNotFound           = fmt.Errorf("application: %w", fault.ErrNotFound)
	ErrNotOwner           = fmt.Errorf("application: not the posting owner: %w", fault.ErrForbidden)
	ErrNotLabor           = fmt.Errorf("application: only labor profiles can take jobs: %w", fault.ErrForbidden)
)

// SafetyLimitError refuses a booking that would push a worker past the weekly
// hour cap. Projected is what the week would have held after the booking.
type SafetyLimitError struct {
	Current   float64
	Requested float64
	Projected float64
	Cap       float64
}

func (e *SafetyLimitError) Error() string {
	return fmt.Sprintf("application: weekly safety limit exceeded: %gh booked + %gh requested = %gh projected (limit %gh)",
		e.Current, e.Requested, e.Projected, e.Cap)
}

func (e *SafetyLimitError) Unwrap() error { return fault.ErrConflict }

package reservation

import "errors"

// Errors returned by the ledger, the coordinator and the lifecycle
// state machine.  Callers match them with errors.Is; the HTTP layer maps
// each one to a status code.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrHotelNotFound        = errors.New("hotel not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInsufficientCapacity = errors.New("insufficient capacity for the selected dates")
	ErrAlreadyCancelled     = errors.New("booking is already cancelled")
	ErrInvalidTransition    = errors.New("invalid booking status transition")

	// ErrTransient marks storage failures that are safe to retry, such as a
	// deadlock or a lock wait timeout inside the reservation transaction.
	ErrTransient = errors.New("transient storage error")
)

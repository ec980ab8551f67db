package reservation

import (
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Event drives a booking from one status to the next.
type Event string

const (
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventCancel           Event = "cancel"
)

// ParseEvent converts a wire value into an Event.
func ParseEvent(s string) (Event, error) {
	switch e := Event(s); e {
	case EventPaymentSucceeded, EventPaymentFailed, EventCancel:
		return e, nil
	}
	return "", fmt.Errorf("%w: unknown event %q", ErrInvalidRequest, s)
}

// EventForStatus returns the event that moves a booking into target.  It
// lets administrators express an override as the desired status.
func EventForStatus(target model.BookingStatus) (Event, error) {
	switch target {
	case model.BookingConfirmed:
		return EventPaymentSucceeded, nil
	case model.BookingCancelled:
		return EventCancel, nil
	}
	return "", fmt.Errorf("%w: status %q cannot be set directly", ErrInvalidRequest, target)
}

// Transition is the booking lifecycle as a pure function.  cancelled is
// terminal: cancelling it again yields ErrAlreadyCancelled, any other
// event on it yields ErrInvalidTransition.
func Transition(current model.BookingStatus, ev Event) (model.BookingStatus, error) {
	switch current {
	case model.BookingPending:
		switch ev {
		case EventPaymentSucceeded:
			return model.BookingConfirmed, nil
		case EventPaymentFailed, EventCancel:
			return model.BookingCancelled, nil
		}
	case model.BookingConfirmed:
		if ev == EventCancel {
			return model.BookingCancelled, nil
		}
	case model.BookingCancelled:
		if ev == EventCancel {
			return current, ErrAlreadyCancelled
		}
	}
	return current, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, current)
}

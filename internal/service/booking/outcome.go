package booking

import (
	"fmt"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Reason classifies a rejected reservation.
type Reason int

const (
	ValidationFailed Reason = iota + 1
	EventNotFound
	AlreadyBooked
	CapacityExceeded
)

func (r Reason) String() string {
	switch r {
	case ValidationFailed:
		return "validation_failed"
	case EventNotFound:
		return "event_not_found"
	case AlreadyBooked:
		return "already_booked"
	case CapacityExceeded:
		return "capacity_exceeded"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Code is the client facing error category.  AlreadyBooked and
// CapacityExceeded share CONFLICT and differ only by message.
func (r Reason) Code() string {
	switch r {
	case ValidationFailed:
		return "VALIDATION_ERROR"
	case EventNotFound:
		return "NOT_FOUND"
	case AlreadyBooked, CapacityExceeded:
		return "CONFLICT"
	}
	return "INTERNAL_ERROR"
}

// Outcome is the result of a reservation attempt.  It is one of
// Reserved, Rejected or StorageFailure; no other implementations exist
// outside this package.
type Outcome interface {
	outcome()
}

// Reserved carries the committed booking.
type Reserved struct {
	Booking model.Booking
}

// Rejected is a business rule or input rejection.  Nothing was written.
type Rejected struct {
	Reason  Reason
	Message string
	Details map[string]any
}

// StorageFailure wraps an infrastructure fault.  The transaction was
// rolled back.  Err is for logs only and must not reach clients.
type StorageFailure struct {
	Err error
}

func (Reserved) outcome()       {}
func (Rejected) outcome()       {}
func (StorageFailure) outcome() {}

// Match dispatches on the outcome variant.  Every branch is required so
// adding a variant breaks all callers at compile time.
func Match[T any](o Outcome, onReserved func(Reserved) T, onRejected func(Rejected) T, onFailure func(StorageFailure) T) T {
	switch v := o.(type) {
	case Reserved:
		return onReserved(v)
	case Rejected:
		return onRejected(v)
	case StorageFailure:
		return onFailure(v)
	}
	return onFailure(StorageFailure{Err: fmt.Errorf("booking: unexpected outcome %T", o)})
}

// Label names the outcome for metrics and logs.
func Label(o Outcome) string {
	return Match(o,
		func(Reserved) string { return "reserved" },
		func(r Rejected) string { return r.Reason.String() },
		func(StorageFailure) string { return "storage_failure" },
	)
}

func reject(reason Reason, msg string, details map[string]any) Outcome {
	return Rejected{Reason: reason, Message: msg, Details: details}
}

package model

import "time"

// Booking is a committed reservation linking one user to one event.
// Bookings are append-only: once written they are never updated or
// deleted by the reservation flow.
//
// Fields:
//
//	ID        – primary key identifier assigned by the store.
//	EventID   – event the seat belongs to.
//	UserID    – opaque identifier of the user holding the seat.
//	CreatedAt – commit timestamp assigned by the store.
type Booking struct {
	ID        int64     `json:"id"`         // bookings.id
	EventID   int64     `json:"event_id"`   // bookings.event_id
	UserID    string    `json:"user_id"`    // bookings.user_id
	CreatedAt time.Time `json:"created_at"` // bookings.created_at
}

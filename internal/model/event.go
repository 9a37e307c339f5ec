package model

import "time"

// Event is a bookable entity with a fixed seat capacity.  Seats are
// fungible: an event only tracks how many exist, never which one a
// booking occupies.
//
// Fields:
//
//	ID         – primary key identifier.
//	Name       – display name.
//	TotalSeats – capacity, fixed at creation.
//	CreatedAt  – creation timestamp.
type Event struct {
	ID         int64     `json:"id"`          // events.id
	Name       string    `json:"name"`        // events.name
	TotalSeats int       `json:"total_seats"` // events.total_seats
	CreatedAt  time.Time `json:"created_at"`  // events.created_at
}

// Package queue carries booking.confirmed notifications between the API
// and downstream consumers over RabbitMQ or Kafka.
package queue

import "time"

// BookingConfirmedQueue is the RabbitMQ queue and default Kafka topic.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published after a reservation commits.  It
// holds enough for consumers to log or notify without reading the
// primary database.
type BookingConfirmedEvent struct {
	MessageID      string    `json:"message_id"`
	BookingID      int64     `json:"booking_id"`
	EventID        int64     `json:"event_id"`
	EventName      string    `json:"event_name"`
	UserID         string    `json:"user_id"`
	SeatsRemaining int       `json:"seats_remaining"`
	BookedAt       time.Time `json:"booked_at"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

package booking

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// AvailableSeats returns the seats left on the event given the number of
// committed bookings.  The result can be zero or negative; anything <= 0
// means sold out.
func AvailableSeats(event model.Event, booked int) int {
	return event.TotalSeats - booked
}

// availableSeatsTx recounts bookings inside tx.  Called after the event
// lock is held so the count cannot change until commit.
func (s *Service) availableSeatsTx(ctx context.Context, tx *sql.Tx, event model.Event) (int, error) {
	const op = "booking.availableSeatsTx"
	n, err := s.bookings.CountByEventTx(ctx, tx, event.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return AvailableSeats(event, n), nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// BookingRepo provides access to the bookings table.  The table is
// append-only: there is deliberately no update or delete method.  The
// Tx methods read inside the caller's transaction and rely on the event
// row lock for isolation from other in-flight reservations.
type BookingRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB, dialect Dialect) *BookingRepo {
	return &BookingRepo{db: db, dialect: dialect}
}

// ExistsByEventAndUserTx reports whether the user already holds a
// booking for the event.
func (r *BookingRepo) ExistsByEventAndUserTx(ctx context.Context, tx *sql.Tx, eventID int64, userID string) (bool, error) {
	const op = "repository.BookingRepo.ExistsByEventAndUserTx"
	const q = `SELECT EXISTS(SELECT 1 FROM bookings WHERE event_id = ? AND user_id = ?)`
	var exists bool
	if err := tx.QueryRowContext(ctx, r.dialect.Rebind(q), eventID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CountByEventTx returns the number of committed bookings for the event.
func (r *BookingRepo) CountByEventTx(ctx context.Context, tx *sql.Tx, eventID int64) (int, error) {
	const op = "repository.BookingRepo.CountByEventTx"
	const q = `SELECT COUNT(*) FROM bookings WHERE event_id = ?`
	var n int
	if err := tx.QueryRowContext(ctx, r.dialect.Rebind(q), eventID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CreateTx inserts a booking within the transaction and returns it with
// the store assigned ID and timestamp.  Constraint violations (unknown
// event, duplicate pair) come back as errors.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, eventID int64, userID string) (model.Booking, error) {
	const op = "repository.BookingRepo.CreateTx"
	const q = `INSERT INTO bookings (event_id, user_id) VALUES (?, ?)`
	id, createdAt, err := r.dialect.insertReturning(ctx, tx, "bookings", q, eventID, userID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	return model.Booking{ID: id, EventID: eventID, UserID: userID, CreatedAt: createdAt}, nil
}

// ListByEvent returns bookings for an event in commit order.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]model.Booking, error) {
	const op = "repository.BookingRepo.ListByEvent"
	const q = `SELECT id, event_id, user_id, created_at
               FROM bookings
               WHERE event_id = ?
               ORDER BY id ASC
               LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bookings, nil
}

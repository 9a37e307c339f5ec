package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// EventRepo provides access to the events table.  During a reservation
// the event row is only read and locked; the reservation flow never
// modifies it.  Create, GetByID, List and AvailableSeats serve the
// administrative and public endpoints.
type EventRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB, dialect Dialect) *EventRepo {
	return &EventRepo{db: db, dialect: dialect}
}

// FindByIDTx loads an event inside the given transaction.  Absence is a
// normal outcome and is reported as found == false with a nil error.
func (r *EventRepo) FindByIDTx(ctx context.Context, tx *sql.Tx, eventID int64) (model.Event, bool, error) {
	const op = "repository.EventRepo.FindByIDTx"
	const q = `SELECT id, name, total_seats, created_at FROM events WHERE id = ?`
	var e model.Event
	err := tx.QueryRowContext(ctx, r.dialect.Rebind(q), eventID).Scan(&e.ID, &e.Name, &e.TotalSeats, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, false, nil
		}
		return model.Event{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return e, true, nil
}

// LockForUpdateTx takes an exclusive row lock on the event.  Concurrent
// transactions locking the same event block here until the holder
// commits or rolls back; the lock is released with the transaction.
// Callers must confirm the event exists first.
func (r *EventRepo) LockForUpdateTx(ctx context.Context, tx *sql.Tx, eventID int64) error {
	const op = "repository.EventRepo.LockForUpdateTx"
	const q = `SELECT id FROM events WHERE id = ? FOR UPDATE`
	var locked int64
	if err := tx.QueryRowContext(ctx, r.dialect.Rebind(q), eventID).Scan(&locked); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Create inserts a new event and returns it with its generated ID and
// creation timestamp.
func (r *EventRepo) Create(ctx context.Context, name string, totalSeats int) (model.Event, error) {
	const op = "repository.EventRepo.Create"
	const q = `INSERT INTO events (name, total_seats) VALUES (?, ?)`
	id, createdAt, err := r.dialect.insertReturning(ctx, r.db, "events", q, name, totalSeats)
	if err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return model.Event{ID: id, Name: name, TotalSeats: totalSeats, CreatedAt: createdAt}, nil
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, eventID int64) (model.Event, error) {
	const op = "repository.EventRepo.GetByID"
	const q = `SELECT id, name, total_seats, created_at FROM events WHERE id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(q), eventID).Scan(&e.ID, &e.Name, &e.TotalSeats, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// List returns events ordered by ID, newest first.  When no events
// exist an empty slice is returned.
func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]model.Event, error) {
	const op = "repository.EventRepo.List"
	const q = `SELECT id, name, total_seats, created_at FROM events ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.TotalSeats, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return events, nil
}

// AvailableSeats computes total_seats minus the committed booking count
// in a single statement outside of any transaction.  The value is a
// snapshot for display only; reservations recount under the event lock.
// It may be negative if capacity was ever violated.
func (r *EventRepo) AvailableSeats(ctx context.Context, eventID int64) (int, error) {
	const op = "repository.EventRepo.AvailableSeats"
	const q = `SELECT e.total_seats - COUNT(b.id)
               FROM events e
               LEFT JOIN bookings b ON b.event_id = e.id
               WHERE e.id = ?
               GROUP BY e.id, e.total_seats`
	var available int
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(q), eventID).Scan(&available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return available, nil
}

// Package booking implements seat reservation.  A reservation runs in a
// single transaction that locks the event row, so concurrent attempts
// on the same event are serialized while different events proceed in
// parallel.
package booking

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iliyamo/event-seat-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
)

const publishTimeout = 5 * time.Second

type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type EventStore interface {
	FindByIDTx(ctx context.Context, tx *sql.Tx, eventID int64) (model.Event, bool, error)
	LockForUpdateTx(ctx context.Context, tx *sql.Tx, eventID int64) error
}

type BookingStore interface {
	ExistsByEventAndUserTx(ctx context.Context, tx *sql.Tx, eventID int64, userID string) (bool, error)
	CountByEventTx(ctx context.Context, tx *sql.Tx, eventID int64) (int, error)
	CreateTx(ctx context.Context, tx *sql.Tx, eventID int64, userID string) (model.Booking, error)
}

type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

type Recorder interface {
	ObserveReservation(outcome string, elapsed time.Duration)
	PublishFailed()
}

type Service struct {
	log       *slog.Logger
	db        TxBeginner
	events    EventStore
	bookings  BookingStore
	publisher Publisher
	metrics   Recorder
	validator *validator.Validate
	now       func() time.Time
}

// New returns a reservation service.  publisher and metrics may be nil.
func New(
	log *slog.Logger,
	db TxBeginner,
	events EventStore,
	bookings BookingStore,
	publisher Publisher,
	metrics Recorder,
) *Service {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{
		log:       log,
		db:        db,
		events:    events,
		bookings:  bookings,
		publisher: publisher,
		metrics:   metrics,
		validator: validator.New(),
		now:       time.Now,
	}
}

// Reserve books one seat on eventID for userID.  Rejections and faults
// are returned as Outcome values; Reserve never panics on a storage
// error.  After a successful commit a booking.confirmed message is
// published on a best effort basis.
func (s *Service) Reserve(ctx context.Context, eventID int64, userID string) Outcome {
	const op = "booking.Reserve"
	log := s.log.With(slog.String("op", op), slog.Int64("event_id", eventID))

	start := s.now()
	userID = strings.TrimSpace(userID)

	if rej := s.validate(eventID, userID); rej != nil {
		log.Debug("reservation rejected", slog.String("reason", rej.Message))
		s.metrics.ObserveReservation(Label(*rej), s.now().Sub(start))
		return *rej
	}

	out, event, remaining := s.reserveTx(ctx, eventID, userID)
	s.metrics.ObserveReservation(Label(out), s.now().Sub(start))

	Match(out,
		func(r Reserved) struct{} {
			log.Info("seat reserved", slog.Int64("booking_id", r.Booking.ID), slog.Int("seats_remaining", remaining))
			s.publishConfirmed(ctx, log, event, r.Booking, remaining)
			return struct{}{}
		},
		func(r Rejected) struct{} {
			log.Info("reservation rejected", slog.String("reason", r.Reason.String()))
			return struct{}{}
		},
		func(f StorageFailure) struct{} {
			log.Error("reservation failed", sl.Err(f.Err))
			return struct{}{}
		},
	)
	return out
}

// reserveTx runs the locked check-then-insert sequence.  On success it
// also returns the event and the seats left after this booking.
func (s *Service) reserveTx(ctx context.Context, eventID int64, userID string) (Outcome, model.Event, int) {
	const op = "booking.reserveTx"
	fail := func(err error) (Outcome, model.Event, int) {
		return StorageFailure{Err: fmt.Errorf("%s: %w", op, err)}, model.Event{}, 0
	}

	// READ COMMITTED so reads after the lock see bookings committed by the
	// previous lock holder.  REPEATABLE READ would keep the snapshot from
	// the first read.
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fail(fmt.Errorf("begin: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	event, found, err := s.events.FindByIDTx(ctx, tx, eventID)
	if err != nil {
		return fail(err)
	}
	if !found {
		return reject(EventNotFound, fmt.Sprintf("Event with id %d does not exist", eventID), nil), model.Event{}, 0
	}

	if err := s.events.LockForUpdateTx(ctx, tx, eventID); err != nil {
		return fail(err)
	}

	booked, err := s.bookings.ExistsByEventAndUserTx(ctx, tx, eventID, userID)
	if err != nil {
		return fail(err)
	}
	if booked {
		return reject(AlreadyBooked, "User has already booked this event", map[string]any{"event_id": eventID}), model.Event{}, 0
	}

	available, err := s.availableSeatsTx(ctx, tx, event)
	if err != nil {
		return fail(err)
	}
	if available <= 0 {
		return reject(CapacityExceeded, "No available seats for this event", map[string]any{
			"event_id":    eventID,
			"total_seats": event.TotalSeats,
		}), model.Event{}, 0
	}

	b, err := s.bookings.CreateTx(ctx, tx, eventID, userID)
	if err != nil {
		return fail(err)
	}

	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	committed = true
	return Reserved{Booking: b}, event, available - 1
}

func (s *Service) publishConfirmed(ctx context.Context, log *slog.Logger, event model.Event, b model.Booking, remaining int) {
	// The booking is durable at this point; a cancelled request must not
	// drop the notification.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := queue.BookingConfirmedEvent{
		MessageID:      uuid.NewString(),
		BookingID:      b.ID,
		EventID:        event.ID,
		EventName:      event.Name,
		UserID:         b.UserID,
		SeatsRemaining: remaining,
		BookedAt:       b.CreatedAt,
		ConfirmedAt:    s.now().UTC(),
	}
	if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		s.metrics.PublishFailed()
		log.Warn("failed to publish booking confirmation", slog.Int64("booking_id", b.ID), sl.Err(err))
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveReservation(string, time.Duration) {}
func (nopRecorder) PublishFailed()                           {}

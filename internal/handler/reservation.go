package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service/booking"
)

// Reserver is implemented by *booking.Service.
type Reserver interface {
	Reserve(ctx context.Context, eventID int64, userID string) booking.Outcome
}

type ReservationHandler struct {
	svc Reserver
}

func NewReservationHandler(svc Reserver) *ReservationHandler {
	if svc == nil {
		panic("nil reserver passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

// reserveRequest keeps both fields raw so a wrong JSON type can be
// reported per field instead of failing the whole decode.
type reserveRequest struct {
	EventID json.RawMessage `json:"event_id"`
	UserID  json.RawMessage `json:"user_id"`
}

type reservedResponse struct {
	Success bool          `json:"success"`
	Booking model.Booking `json:"booking"`
}

// Reserve handles POST /api/bookings/reserve.
//
//	201 booking created
//	400 VALIDATION_ERROR
//	404 NOT_FOUND       event does not exist
//	409 CONFLICT        already booked or sold out
//	500 DATABASE_ERROR
func (h *ReservationHandler) Reserve(c echo.Context) error {
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, CodeValidation, "invalid request body", nil)
	}

	var (
		eventID int64
		userID  string
	)
	if present(req.EventID) {
		if err := json.Unmarshal(req.EventID, &eventID); err != nil {
			return invalidField(c, "event_id", "event_id must be a number")
		}
	}
	if present(req.UserID) {
		if err := json.Unmarshal(req.UserID, &userID); err != nil {
			return invalidField(c, "user_id", "user_id must be a string")
		}
	}

	out := h.svc.Reserve(c.Request().Context(), eventID, userID)
	return booking.Match(out,
		func(r booking.Reserved) error {
			return c.JSON(http.StatusCreated, reservedResponse{Success: true, Booking: r.Booking})
		},
		func(r booking.Rejected) error {
			return fail(c, r.Reason.Code(), r.Message, r.Details)
		},
		func(booking.StorageFailure) error {
			// logged by the service; never echo storage errors
			return fail(c, CodeDatabase, msgInternalServer, nil)
		},
	)
}

// present reports whether a raw JSON field was supplied with a non-null
// value.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

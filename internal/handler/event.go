package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type EventStore interface {
	Create(ctx context.Context, name string, totalSeats int) (model.Event, error)
	GetByID(ctx context.Context, eventID int64) (model.Event, error)
	List(ctx context.Context, limit, offset int) ([]model.Event, error)
	AvailableSeats(ctx context.Context, eventID int64) (int, error)
}

type BookingLister interface {
	ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]model.Booking, error)
}

// EventHandler serves the public event reads and the operator endpoints
// for creating events and listing their bookings.
type EventHandler struct {
	log      *slog.Logger
	events   EventStore
	bookings BookingLister
	validate *validator.Validate
}

func NewEventHandler(log *slog.Logger, events EventStore, bookings BookingLister) *EventHandler {
	if events == nil || bookings == nil {
		panic("nil repository passed to NewEventHandler")
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &EventHandler{log: log, events: events, bookings: bookings, validate: v}
}

type eventDetail struct {
	model.Event
	AvailableSeats int `json:"available_seats"`
}

// GetEvent handles GET /api/events/:id.  available_seats is a point in
// time value and never negative.
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidField(c, "id", "invalid event id")
	}
	ctx := c.Request().Context()

	ev, err := h.events.GetByID(ctx, id)
	if err != nil {
		return h.lookupFailed(c, id, err)
	}
	available, err := h.events.AvailableSeats(ctx, id)
	if err != nil {
		return h.lookupFailed(c, id, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"event":   eventDetail{Event: ev, AvailableSeats: max(available, 0)},
	})
}

// ListEvents handles GET /api/events?limit=&offset=.
func (h *EventHandler) ListEvents(c echo.Context) error {
	limit, offset, err := parsePage(c)
	if err != nil {
		return invalidField(c, "limit", err.Error())
	}
	events, err := h.events.List(c.Request().Context(), limit, offset)
	if err != nil {
		h.log.Error("list events failed", sl.Err(err))
		return fail(c, CodeDatabase, msgInternalServer, nil)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"events":  events,
		"limit":   limit,
		"offset":  offset,
	})
}

type createEventRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	TotalSeats *int   `json:"total_seats" validate:"required,gte=0,lte=1000000"`
}

// CreateEvent handles POST /api/admin/events.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, CodeValidation, "invalid request body", nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return invalidField(c, verrs[0].Field(), describe(verrs[0]))
		}
		return fail(c, CodeValidation, "invalid request body", nil)
	}

	ev, err := h.events.Create(c.Request().Context(), req.Name, *req.TotalSeats)
	if err != nil {
		h.log.Error("create event failed", sl.Err(err))
		return fail(c, CodeDatabase, msgInternalServer, nil)
	}
	h.log.Info("event created",
		slog.Int64("event_id", ev.ID),
		slog.Int("total_seats", ev.TotalSeats),
		slog.String("by", middleware.UserID(c)),
	)
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "event": ev})
}

// ListBookings handles GET /api/admin/events/:id/bookings.
func (h *EventHandler) ListBookings(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return invalidField(c, "id", "invalid event id")
	}
	limit, offset, err := parsePage(c)
	if err != nil {
		return invalidField(c, "limit", err.Error())
	}
	ctx := c.Request().Context()

	if _, err := h.events.GetByID(ctx, id); err != nil {
		return h.lookupFailed(c, id, err)
	}
	bookings, err := h.bookings.ListByEvent(ctx, id, limit, offset)
	if err != nil {
		h.log.Error("list bookings failed", slog.Int64("event_id", id), sl.Err(err))
		return fail(c, CodeDatabase, msgInternalServer, nil)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"bookings": bookings,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *EventHandler) lookupFailed(c echo.Context, id int64, err error) error {
	if errors.Is(err, repository.ErrEventNotFound) {
		return fail(c, CodeNotFound, fmt.Sprintf("Event with id %d does not exist", id), nil)
	}
	h.log.Error("event lookup failed", slog.Int64("event_id", id), sl.Err(err))
	return fail(c, CodeDatabase, msgInternalServer, nil)
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parsePage(c echo.Context) (limit, offset int, err error) {
	limit, offset = defaultPageSize, 0
	if s := c.QueryParam("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
	}
	if s := c.QueryParam("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

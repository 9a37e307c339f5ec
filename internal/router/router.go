// Package router registers the HTTP routes on an echo instance.
package router

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/metrics"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

// Deps is everything the route table needs.  Redis may be nil, in which
// case rate limiting and response caching are skipped.
type Deps struct {
	Log          *slog.Logger
	Config       config.Config
	Redis        *redis.Client
	Metrics      *metrics.Metrics
	DB           handler.Pinger
	Reservations *handler.ReservationHandler
	Events       *handler.EventHandler
}

// New returns an echo instance with the common middleware stack and all
// routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d)
	RegisterBookings(e, d)
	RegisterEvents(e, d)
	RegisterAdmin(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
}

// RegisterBookings registers POST /api/bookings/reserve behind the token
// bucket limiter.
func RegisterBookings(e *echo.Echo, d Deps) {
	var onLimited func()
	if d.Metrics != nil {
		onLimited = d.Metrics.RateLimited.Inc
	}
	g := e.Group("/api/bookings")
	g.POST("/reserve", d.Reservations.Reserve,
		middleware.NewTokenBucket(d.Log, d.Config.RateLimit, d.Redis, onLimited))
}

// RegisterEvents registers the public event reads behind the response
// cache.
func RegisterEvents(e *echo.Echo, d Deps) {
	g := e.Group("/api/events", middleware.NewRedisCache(d.Log, d.Config.Cache, d.Redis))
	g.GET("", d.Events.ListEvents)
	g.GET("/:id", d.Events.GetEvent)
}

// RegisterAdmin registers the operator endpoints.  Every route requires a
// valid access token carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/api/admin")
	g.Use(middleware.JWTAuth(d.Config.JWTSecret))
	g.Use(middleware.RequireRole(utils.RoleAdmin))
	g.POST("/events", d.Events.CreateEvent)
	g.GET("/events/:id/bookings", d.Events.ListBookings)
}

// Package app assembles the booking service from its configuration and
// owns the lifetime of every long lived resource.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-seat-booking/internal/metrics"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/router"
	"github.com/iliyamo/event-seat-booking/internal/service/booking"
)

type consumer interface {
	Run(ctx context.Context) error
}

type App struct {
	log       *slog.Logger
	cfg       config.Config
	db        *sql.DB
	rdb       *redis.Client
	publisher queue.Publisher
	consumer  consumer
	echo      *echo.Echo

	mu           sync.Mutex
	stopped      bool
	stopConsumer context.CancelFunc
	consumerDone chan struct{}
}

// New connects to the database, optionally applies migrations and wires
// the HTTP stack.  Redis and the broker are optional: a Redis outage
// disables rate limiting and caching, and EVENTS_BROKER=none disables
// confirmations.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	const op = "app.New"

	if cfg.MigrateOnStart {
		applied, err := database.MigrateUp(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("migrations checked", slog.Bool("applied", applied))
	}

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	dialect, err := repository.DialectFor(cfg.DB.Driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, rate limiting and caching disabled", sl.Err(err))
		rdb = nil
	}

	m := metrics.New()
	publisher := newPublisher(log, cfg.Broker, m)

	events := repository.NewEventRepo(db, dialect)
	bookings := repository.NewBookingRepo(db, dialect)
	svc := booking.New(log, db, events, bookings, publisher, m)

	a := &App{
		log:       log,
		cfg:       cfg,
		db:        db,
		rdb:       rdb,
		publisher: publisher,
		consumer:  newConsumer(log, cfg.Broker),
	}
	a.echo = router.New(router.Deps{
		Log:          log,
		Config:       cfg,
		Redis:        rdb,
		Metrics:      m,
		DB:           db,
		Reservations: handler.NewReservationHandler(svc),
		Events:       handler.NewEventHandler(log, events, bookings),
	})
	return a, nil
}

// newPublisher returns the broker publisher behind a bounded buffer so
// reservations never wait on the broker.
func newPublisher(log *slog.Logger, cfg config.BrokerConfig, m *metrics.Metrics) queue.Publisher {
	var next queue.Publisher
	switch cfg.Kind {
	case config.BrokerRabbitMQ:
		next = queue.NewRabbitPublisher(cfg.RabbitURL)
	case config.BrokerKafka:
		next = queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return queue.NopPublisher{}
	}
	return queue.NewAsyncPublisher(next, queue.AsyncOptions{
		Buffer: cfg.PublishBuffer,
		OnError: func(ev queue.BookingConfirmedEvent, err error) {
			m.PublishFailed()
			log.Warn("failed to deliver booking confirmation",
				slog.Int64("booking_id", ev.BookingID),
				slog.String("message_id", ev.MessageID),
				sl.Err(err),
			)
		},
	})
}

func newConsumer(log *slog.Logger, cfg config.BrokerConfig) consumer {
	if !cfg.ConsumerEnabled {
		return nil
	}
	bl := queue.NewBookingLog(cfg.BookingLogPath)
	switch cfg.Kind {
	case config.BrokerRabbitMQ:
		return queue.NewRabbitConsumer(log, cfg.RabbitURL, bl)
	case config.BrokerKafka:
		return queue.NewKafkaConsumer(log, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, bl)
	}
	return nil
}

// Handler exposes the HTTP stack, mainly for tests.
func (a *App) Handler() http.Handler { return a.echo }

// MustRun starts the optional consumer and serves HTTP until Stop is
// called.  It panics if the listener fails.
func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "app.Run"

	a.startConsumer()

	addr := ":" + a.cfg.Port
	a.log.Info("http server started", slog.String("addr", addr))
	if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (a *App) startConsumer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consumer == nil || a.stopped || a.stopConsumer != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopConsumer = cancel
	done := make(chan struct{})
	a.consumerDone = done
	go func() {
		defer close(done)
		_ = a.consumer.Run(ctx)
	}()
}

// Stop drains in flight requests, stops the consumer and releases the
// publisher, Redis and database pool in that order.
func (a *App) Stop() error {
	const op = "app.Stop"

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	a.mu.Lock()
	a.stopped = true
	if a.stopConsumer != nil {
		a.stopConsumer()
		<-a.consumerDone
	}
	a.mu.Unlock()
	if err := a.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher close: %w", err))
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/event-seat-booking/internal/lib/logger/sl"
)

const maxBackoff = 30 * time.Second

// BookingLog appends one line per confirmed booking to a file, by
// default logs/booking.log.
type BookingLog struct {
	path string
	mu   sync.Mutex
}

func NewBookingLog(path string) *BookingLog {
	if path == "" {
		path = filepath.Join("logs", "booking.log")
	}
	return &BookingLog{path: path}
}

// Handle decodes a booking.confirmed payload and appends it to the log.
func (l *BookingLog) Handle(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single human readable log line.
func FormatLine(ev BookingConfirmedEvent) string {
	return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | event_id=%d | event=%q | user_id=%q | seats_remaining=%d | message_id=%s\n",
		ev.ConfirmedAt.UTC().Format(time.RFC3339), ev.BookingID, ev.EventID, ev.EventName, ev.UserID, ev.SeatsRemaining, ev.MessageID)
}

// RabbitConsumer reads the booking.confirmed queue and hands each
// delivery to a BookingLog.  It reconnects with exponential backoff
// until its context is cancelled.
type RabbitConsumer struct {
	log     *slog.Logger
	url     string
	queue   string
	handler *BookingLog
}

func NewRabbitConsumer(log *slog.Logger, url string, handler *BookingLog) *RabbitConsumer {
	return &RabbitConsumer{log: log, url: url, queue: BookingConfirmedQueue, handler: handler}
}

// Run blocks until ctx is done.  It always returns ctx.Err().
func (c *RabbitConsumer) Run(ctx context.Context) error {
	const op = "queue.RabbitConsumer.Run"
	log := c.log.With(slog.String("op", op), slog.String("queue", c.queue))

	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Warn("failed to dial broker", sl.Err(err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", sl.Err(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *RabbitConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", sl.Err(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handler.Handle(d.Body); err != nil {
				c.log.Error("handle message failed", sl.Err(err))
				// reject without requeue to avoid a tight redelivery loop
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// messageReader is the subset of *kafka.Reader used by KafkaConsumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads the booking.confirmed topic as part of a consumer
// group.  Messages the handler rejects are logged and committed so they
// are not redelivered.
type KafkaConsumer struct {
	log     *slog.Logger
	reader  messageReader
	handler *BookingLog
}

func NewKafkaConsumer(log *slog.Logger, brokers []string, topic, group string, handler *BookingLog) *KafkaConsumer {
	return &KafkaConsumer{
		log: log,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: group,
		}),
		handler: handler,
	}
}

func (c *KafkaConsumer) Run(ctx context.Context) error {
	const op = "queue.KafkaConsumer.Run"
	log := c.log.With(slog.String("op", op))
	defer func() { _ = c.reader.Close() }()

	backoff := time.Second
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("fetch failed", sl.Err(err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		if err := c.handler.Handle(m.Value); err != nil {
			log.Error("handle message failed", sl.Err(err), slog.Int64("offset", m.Offset))
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			log.Warn("commit failed", sl.Err(err), slog.Int64("offset", m.Offset))
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleep waits for d or until ctx is done.  It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers booking confirmations to a broker.  Callers treat
// errors as non-fatal.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error
	Close() error
}

// NopPublisher discards every message.  Used when EVENTS_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmedEvent) error { return nil }
func (NopPublisher) Close() error                                                       { return nil }

// amqpChannel is the subset of *amqp.Channel the publisher needs.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes to the durable booking.confirmed queue over
// a single long lived connection.  The connection and channel are
// reopened lazily after a failure.  At most one dial runs at a time; it
// is bounded by dialTimeout and callers stop waiting for it when their
// context is done.
type RabbitPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	dial        func(url string, timeout time.Duration) (*amqp.Connection, amqpChannel, error)

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      amqpChannel
	dialing chan struct{}
	dialErr error
	closed  bool
}

const defaultDialTimeout = 5 * time.Second

// NewRabbitPublisher returns a publisher for url.  No connection is made
// until the first publish.
func NewRabbitPublisher(url string) *RabbitPublisher {
	return &RabbitPublisher{
		url:         url,
		queue:       BookingConfirmedQueue,
		dialTimeout: defaultDialTimeout,
		dial:        dialRabbit,
	}
}

func dialRabbit(url string, timeout time.Duration) (*amqp.Connection, amqpChannel, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// channel returns the open channel, starting a dial if none is running
// and waiting for it no longer than ctx allows.
func (p *RabbitPublisher) channel(ctx context.Context) (amqpChannel, error) {
	p.mu.Lock()
	if p.ch != nil {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPublisherClosed
	}
	if p.dialing == nil {
		p.dialing = make(chan struct{})
		go p.connect(p.dialing)
	}
	dialing := p.dialing
	p.mu.Unlock()

	select {
	case <-dialing:
	case <-ctx.Done():
		return nil, fmt.Errorf("dial: %w", ctx.Err())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil, fmt.Errorf("dial: %w", p.dialErr)
	}
	return p.ch, nil
}

func (p *RabbitPublisher) connect(done chan struct{}) {
	defer close(done)

	conn, ch, err := p.dial(p.url, p.dialTimeout)
	if err == nil {
		// Durable so messages survive broker restarts.
		if _, err = ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
			closeAMQP(conn, ch)
			err = fmt.Errorf("queue declare: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = nil
	p.dialErr = err
	if err != nil {
		return
	}
	if p.closed {
		closeAMQP(conn, ch)
		p.dialErr = ErrPublisherClosed
		return
	}
	p.conn, p.ch = conn, ch
}

func closeAMQP(conn *amqp.Connection, ch amqpChannel) {
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// reset drops ch if it is still the current channel.  Caller holds mu.
func (p *RabbitPublisher) reset(ch amqpChannel) {
	if p.ch == nil || p.ch != ch {
		return
	}
	closeAMQP(p.conn, p.ch)
	p.conn, p.ch = nil, nil
}

// PublishBookingConfirmed publishes ev as a persistent JSON message on
// the default exchange.
func (p *RabbitPublisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	const op = "queue.RabbitPublisher.PublishBookingConfirmed"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.MessageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.mu.Lock()
		p.reset(ch)
		p.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close releases the broker connection.  A dial still in flight is
// discarded when it completes.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset(p.ch)
	return nil
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes confirmations to a Kafka topic keyed by event id
// so messages for one event stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	const op = "queue.KafkaPublisher.PublishBookingConfirmed"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", ev.EventID)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(ev.MessageID)},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     int
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func testEvent() BookingConfirmedEvent {
	return BookingConfirmedEvent{
		MessageID:      "msg-1",
		BookingID:      7,
		EventID:        3,
		EventName:      "Concert",
		UserID:         "alice",
		SeatsRemaining: 4,
		BookedAt:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		ConfirmedAt:    time.Date(2025, 1, 2, 3, 4, 6, 0, time.UTC),
	}
}

func TestRabbitPublisher_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	dials := 0
	p := NewRabbitPublisher("amqp://test")
	p.dial = func(string, time.Duration) (*amqp.Connection, amqpChannel, error) {
		dials++
		return nil, ch, nil
	}

	require.NoError(t, p.PublishBookingConfirmed(context.Background(), testEvent()))
	require.NoError(t, p.PublishBookingConfirmed(context.Background(), testEvent()))

	assert.Equal(t, 1, dials, "connection is reused")
	assert.Equal(t, []string{BookingConfirmedQueue}, ch.declared)
	require.Len(t, ch.published, 2)
	assert.Equal(t, []string{BookingConfirmedQueue, BookingConfirmedQueue}, ch.keys)

	msg := ch.published[0]
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "msg-1", msg.MessageId)

	var got BookingConfirmedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, testEvent(), got)
}

func TestRabbitPublisher_RedialsAfterFailure(t *testing.T) {
	broken := &fakeChannel{publishErr: errors.New("channel closed")}
	healthy := &fakeChannel{}
	channels := []*fakeChannel{broken, healthy}
	p := NewRabbitPublisher("amqp://test")
	p.dial = func(string, time.Duration) (*amqp.Connection, amqpChannel, error) {
		ch := channels[0]
		channels = channels[1:]
		return nil, ch, nil
	}

	err := p.PublishBookingConfirmed(context.Background(), testEvent())
	require.Error(t, err)
	assert.Equal(t, 1, broken.closed)

	require.NoError(t, p.PublishBookingConfirmed(context.Background(), testEvent()))
	assert.Len(t, healthy.published, 1)
}

func TestRabbitPublisher_DialError(t *testing.T) {
	p := NewRabbitPublisher("amqp://test")
	p.dial = func(string, time.Duration) (*amqp.Connection, amqpChannel, error) {
		return nil, nil, errors.New("connection refused")
	}
	err := p.PublishBookingConfirmed(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, p.Close())
}

func TestRabbitPublisher_SlowDialHonoursDeadline(t *testing.T) {
	var dials atomic.Int32
	release := make(chan struct{})
	p := NewRabbitPublisher("amqp://unreachable")
	p.dial = func(_ string, timeout time.Duration) (*amqp.Connection, amqpChannel, error) {
		dials.Add(1)
		assert.Equal(t, defaultDialTimeout, timeout)
		<-release
		return nil, nil, errors.New("connection refused")
	}

	start := time.Now()
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			errs[i] = p.PublishBookingConfirmed(ctx, testEvent())
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	close(release)

	assert.Less(t, elapsed, 250*time.Millisecond, "callers must not queue behind the dial")
	for _, err := range errs {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, int32(1), dials.Load(), "one dial in flight")

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.dialing == nil
	}, time.Second, 5*time.Millisecond)
	assert.NoError(t, p.Close())
}

func TestRabbitPublisher_ClosedRejects(t *testing.T) {
	p := NewRabbitPublisher("amqp://test")
	p.dial = func(string, time.Duration) (*amqp.Connection, amqpChannel, error) {
		t.Fatal("dial after close")
		return nil, nil, nil
	}
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.PublishBookingConfirmed(context.Background(), testEvent()), ErrPublisherClosed)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_KeysByEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.PublishBookingConfirmed(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("3"), w.msgs[0].Key)
	assert.Equal(t, "message_id", w.msgs[0].Headers[0].Key)

	var got BookingConfirmedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, int64(7), got.BookingID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: kafka.LeaderNotAvailable}}
	err := p.PublishBookingConfirmed(context.Background(), testEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, kafka.LeaderNotAvailable)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishBookingConfirmed(context.Background(), testEvent()))
	assert.NoError(t, p.Close())
}

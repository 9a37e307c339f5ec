package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrPublisherClosed = errors.New("queue: publisher closed")
	ErrBufferFull      = errors.New("queue: publish buffer full")
)

// AsyncPublisher queues confirmations in a bounded buffer and hands them
// to the wrapped publisher from a single worker, so a slow or absent
// broker never delays the caller.  Enqueue fails fast with ErrBufferFull
// when the buffer is full.  Delivery errors are reported to onError.
type AsyncPublisher struct {
	next         Publisher
	events       chan BookingConfirmedEvent
	sendTimeout  time.Duration
	drainTimeout time.Duration
	onError      func(BookingConfirmedEvent, error)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

type AsyncOptions struct {
	Buffer       int
	SendTimeout  time.Duration
	DrainTimeout time.Duration
	OnError      func(BookingConfirmedEvent, error)
}

func NewAsyncPublisher(next Publisher, opts AsyncOptions) *AsyncPublisher {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 5 * time.Second
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 5 * time.Second
	}
	if opts.OnError == nil {
		opts.OnError = func(BookingConfirmedEvent, error) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &AsyncPublisher{
		next:         next,
		events:       make(chan BookingConfirmedEvent, opts.Buffer),
		sendTimeout:  opts.SendTimeout,
		drainTimeout: opts.DrainTimeout,
		onError:      opts.OnError,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(p.ctx, p.sendTimeout)
		err := p.next.PublishBookingConfirmed(ctx, ev)
		cancel()
		if err != nil {
			p.onError(ev, err)
		}
	}
}

// PublishBookingConfirmed enqueues ev and returns immediately.
func (p *AsyncPublisher) PublishBookingConfirmed(_ context.Context, ev BookingConfirmedEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting messages and delivers what is buffered.  After
// drainTimeout the remaining sends are cancelled and reported to
// onError.  The wrapped publisher is closed last.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	timer := time.NewTimer(p.drainTimeout)
	defer timer.Stop()
	select {
	case <-p.done:
	case <-timer.C:
		p.cancel()
		<-p.done
	}
	p.cancel()
	return p.next.Close()
}

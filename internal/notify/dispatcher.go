// Package notify delivers booking lifecycle messages off the request path.
// The Dispatcher queues messages in memory and hands them to a Sender from
// worker goroutines; senders publish to RabbitMQ or mail the guest.
package notify

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/cenkalti/backoff/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/hotel-reservation/internal/model"
    "github.com/iliyamo/hotel-reservation/internal/queue"
)

// Sender delivers one event.  Errors are retried by the Dispatcher.
type Sender interface {
    Send(ctx context.Context, ev queue.BookingEvent) error
}

// ErrDispatcherClosed is returned by Enqueue after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

type Options struct {
    Buffer      int
    Workers     int
    MaxAttempts int
    BaseDelay   time.Duration
    SendTimeout time.Duration
}

// Dispatcher implements reservation.Notifier.  Enqueueing never blocks: a
// full buffer drops the message with a log line.  Delivery failures are
// retried with exponential backoff and then logged; they never reach the
// booking that triggered them.
type Dispatcher struct {
    sender Sender
    log    *zap.Logger
    opts   Options
    now    func() time.Time

    mu     sync.RWMutex
    closed bool
    ch     chan queue.BookingEvent
    wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, log *zap.Logger, opts Options) *Dispatcher {
    if opts.Buffer < 1 {
        opts.Buffer = 256
    }
    if opts.Workers < 1 {
        opts.Workers = 1
    }
    if opts.MaxAttempts < 1 {
        opts.MaxAttempts = 1
    }
    if opts.BaseDelay <= 0 {
        opts.BaseDelay = 200 * time.Millisecond
    }
    if opts.SendTimeout <= 0 {
        opts.SendTimeout = 10 * time.Second
    }
    d := &Dispatcher{
        sender: sender,
        log:    log,
        opts:   opts,
        now:    func() time.Time { return time.Now().UTC() },
        ch:     make(chan queue.BookingEvent, opts.Buffer),
    }
    for i := 0; i < opts.Workers; i++ {
        d.wg.Add(1)
        go d.worker()
    }
    return d
}

func (d *Dispatcher) BookingReceived(ctx context.Context, b model.Booking, h model.Hotel) {
    d.enqueue(queue.NewBookingEvent(queue.BookingReceived, b, h, d.now()))
}

func (d *Dispatcher) BookingConfirmed(ctx context.Context, b model.Booking, h model.Hotel) {
    d.enqueue(queue.NewBookingEvent(queue.BookingConfirmed, b, h, d.now()))
}

func (d *Dispatcher) BookingCancelled(ctx context.Context, b model.Booking, h model.Hotel) {
    d.enqueue(queue.NewBookingEvent(queue.BookingCancelled, b, h, d.now()))
}

func (d *Dispatcher) enqueue(ev queue.BookingEvent) {
    if err := d.Enqueue(ev); err != nil {
        d.log.Warn("notification dropped",
            zap.String("booking_id", ev.BookingID),
            zap.String("type", string(ev.Type)),
            zap.Error(err),
        )
    }
}

// ErrBufferFull is returned by Enqueue when the buffer has no room.
var ErrBufferFull = errors.New("notification buffer full")

// Enqueue queues ev without blocking.
func (d *Dispatcher) Enqueue(ev queue.BookingEvent) error {
    d.mu.RLock()
    defer d.mu.RUnlock()
    if d.closed {
        return ErrDispatcherClosed
    }
    select {
    case d.ch <- ev:
        return nil
    default:
        return ErrBufferFull
    }
}

// Close stops accepting messages, lets the workers drain what is queued
// and waits for them, or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
    d.mu.Lock()
    if !d.closed {
        d.closed = true
        close(d.ch)
    }
    d.mu.Unlock()

    done := make(chan struct{})
    go func() {
        d.wg.Wait()
        close(done)
    }()
    select {
    case <-done:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (d *Dispatcher) worker() {
    defer d.wg.Done()
    for ev := range d.ch {
        d.deliver(ev)
    }
}

func (d *Dispatcher) deliver(ev queue.BookingEvent) {
    eb := backoff.NewExponentialBackOff()
    eb.InitialInterval = d.opts.BaseDelay
    eb.MaxElapsedTime = 0
    policy := backoff.WithMaxRetries(eb, uint64(d.opts.MaxAttempts-1))

    attempt := 0
    err := backoff.Retry(func() error {
        attempt++
        ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
        defer cancel()
        return d.sender.Send(ctx, ev)
    }, policy)
    if err != nil {
        d.log.Error("notification failed",
            zap.String("booking_id", ev.BookingID),
            zap.String("type", string(ev.Type)),
            zap.Int("attempts", attempt),
            zap.Error(err),
        )
        return
    }
    d.log.Debug("notification sent",
        zap.String("booking_id", ev.BookingID),
        zap.String("type", string(ev.Type)),
    )
}

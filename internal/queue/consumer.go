package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Handler processes one booking event.  A returned error rejects the
// message.
type Handler interface {
    Handle(ctx context.Context, ev BookingEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev BookingEvent) error

func (f HandlerFunc) Handle(ctx context.Context, ev BookingEvent) error { return f(ctx, ev) }

// Consumer reads booking events from a durable queue and hands them to a
// Handler.  Messages are acked after the handler succeeds and rejected
// without requeue otherwise, so a poison message cannot spin the loop.
type Consumer struct {
    url      string
    queue    string
    prefetch int
    handler  Handler
    log      *zap.Logger
}

func NewConsumer(url, queue string, handler Handler, log *zap.Logger) *Consumer {
    return &Consumer{url: url, queue: queue, prefetch: 50, handler: handler, log: log}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with a doubling delay (capped at 30s) whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
    wait := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("booking consumer: dial failed",
                zap.Error(err),
                zap.Duration("retry_in", wait),
            )
            if !sleep(ctx, wait) {
                return ctx.Err()
            }
            if wait < 30*time.Second {
                wait *= 2
            }
            continue
        }
        wait = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            c.log.Info("booking consumer stopped")
            return ctx.Err()
        }
        c.log.Warn("booking consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.prefetch, 0, false); err != nil {
        c.log.Warn("booking consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    c.log.Info("booking consumer started", zap.String("queue", c.queue))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.process(ctx, d.Body, &d)
        }
    }
}

// acknowledger is the part of amqp.Delivery used to settle a message.
type acknowledger interface {
    Ack(multiple bool) error
    Nack(multiple, requeue bool) error
}

func (c *Consumer) process(ctx context.Context, body []byte, ack acknowledger) {
    var ev BookingEvent
    err := json.Unmarshal(body, &ev)
    if err == nil {
        err = c.handler.Handle(ctx, ev)
    } else {
        err = fmt.Errorf("unmarshal: %w", err)
    }
    if err != nil {
        c.log.Error("booking consumer: handle message failed",
            zap.String("booking_id", ev.BookingID),
            zap.String("type", string(ev.Type)),
            zap.Error(err),
        )
        _ = ack.Nack(false, false)
        return
    }
    _ = ack.Ack(false)
}

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

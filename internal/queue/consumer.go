package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/festplanner/internal/metrics"
)

// Handler delivers decoded events.
type Handler interface {
	DeliverOTP(ctx context.Context, ev OTPRequested) error
	DeliverInvitation(ctx context.Context, ev InvitationCreated) error
}

// Consumer reads both mail queues and hands each event to a Handler.
type Consumer struct {
	url     string
	handler Handler
	log     *log.Logger
}

func NewConsumer(url string, h Handler, logger *log.Logger) *Consumer {
	return &Consumer{url: url, handler: h, log: logger}
}

// Run dials the broker, consumes until the connection drops, then
// reconnects with exponential backoff capped at 30s.  It returns only when
// ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("mail consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		metrics.SetConsumerConnected(true)
		err = c.consumeLoop(ctx, conn)
		metrics.SetConsumerConnected(false)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("mail consumer: consume loop ended, reconnecting", "err", err)
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

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("mail consumer: set QoS failed", "err", err)
	}

	otp, err := consume(ch, OTPQueue)
	if err != nil {
		return err
	}
	inv, err := consume(ch, InvitationQueue)
	if err != nil {
		return err
	}

	for {
		var d amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-otp:
		case d, ok = <-inv:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
			c.log.Error("mail consumer: handle message failed", "queue", d.RoutingKey, "err", err)
			_ = d.Nack(false, false) // dropped, not requeued
			continue
		}
		_ = d.Ack(false)
	}
}

func consume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := DeclareQueue(ch, queue); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

// DeclareQueue declares a durable, non-exclusive queue.  Publisher and
// consumer share it so both sides agree on the queue arguments.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}

// Handle decodes one message body for the given queue and dispatches it.
func (c *Consumer) Handle(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case OTPQueue:
		var ev OTPRequested
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.Email == "" || ev.Code == "" {
			return errors.New("otp event without email or code")
		}
		return c.handler.DeliverOTP(ctx, ev)
	case InvitationQueue:
		var ev InvitationCreated
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.Email == "" {
			return errors.New("invitation event without email")
		}
		return c.handler.DeliverInvitation(ctx, ev)
	}
	return fmt.Errorf("unknown queue %q", queue)
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

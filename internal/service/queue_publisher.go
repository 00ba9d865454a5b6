// Package service holds the orchestration shared by HTTP handlers, the mail
// consumer and the festctl CLI: event publishing and notification delivery.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/festplanner/internal/queue"
)

// EventPublisher publishes a JSON payload to a named queue.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, event any) error
}

// Publisher opens a short-lived connection per event.  Errors are logged
// and returned so the caller can fall back without failing the request.
type Publisher struct {
	url string
	log *log.Logger
}

// NewPublisher returns nil when url is empty so callers can treat "no
// broker" uniformly.
func NewPublisher(url string, logger *log.Logger) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url, log: logger}
}

// Publish marshals event and sends it as a persistent message through the
// default exchange, routed by queue name.
func (p *Publisher) Publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := queue.DeclareQueue(ch, queueName); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", "queue", queueName, "err", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", "queue", queueName, "err", err)
		return err
	}
	return nil
}

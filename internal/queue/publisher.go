package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends NotificationEvents to a durable RabbitMQ queue.  Each
// call dials, declares the queue and publishes one persistent message, so
// a broker outage never leaves a broken long-lived channel behind.
// Errors are logged and returned; callers treat them as best effort.
type Publisher struct {
	url    string
	queue  string
	logger *zap.Logger
}

// NewPublisher returns a Publisher for queueName on the broker at url.
func NewPublisher(url, queueName string, logger *zap.Logger) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{url: url, queue: queueName, logger: logger.Named("publisher")}
}

// Publish sends ev.
func (p *Publisher) Publish(ctx context.Context, ev NotificationEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.logger.Warn("queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.TransactionID + ":" + string(ev.EventType),
		Type:         string(ev.EventType),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.logger.Warn("publish failed", zap.String("event", string(ev.EventType)), zap.Error(err))
		return err
	}
	return nil
}

// NopPublisher discards events.  It is used when AMQP_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, NotificationEvent) error { return nil }

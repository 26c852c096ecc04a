package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes events to RabbitMQ.  Every call dials, declares the
// target queue and publishes a persistent JSON message.  Errors are logged
// and returned so callers can decide to ignore them.
type Publisher struct {
	url    string
	logger *log.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{url: url, logger: logger}
}

// PublishBookingConfirmed sends ev to the booking.confirmed queue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	return p.publish(ctx, BookingConfirmedQueue, ev)
}

// PublishEmail sends ev to the email.requested queue.
func (p *Publisher) PublishEmail(ctx context.Context, ev EmailRequestedEvent) error {
	return p.publish(ctx, EmailRequestedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		p.logger.Printf("rabbitmq: marshal %s event failed: %v", queueName, err)
		return err
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.logger.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.logger.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
		return err
	}
	return nil
}

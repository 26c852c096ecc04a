package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-ticketing/internal/mail"
)

// Consumer turns booking.confirmed and email.requested messages into
// emails.  When AuditPath is set every confirmed booking is also appended
// to that file as a single line.
type Consumer struct {
	url       string
	sender    mail.Sender
	logger    *log.Logger
	AuditPath string
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, sender mail.Sender, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Default()
	}
	return &Consumer{url: url, sender: sender, logger: logger}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures trigger a reconnect with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
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

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Printf("booking-consumer: set QoS failed: %v", err)
	}

	bookings, err := c.subscribe(ch, BookingConfirmedQueue)
	if err != nil {
		return err
	}
	emails, err := c.subscribe(ch, EmailRequestedQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-bookings:
			if !ok {
				return errors.New("booking deliveries channel closed")
			}
			c.settle(d, c.HandleBooking(ctx, d.Body))
		case d, ok := <-emails:
			if !ok {
				return errors.New("email deliveries channel closed")
			}
			c.settle(d, c.HandleEmail(ctx, d.Body))
		}
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", name, err)
	}
	msgs, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", name, err)
	}
	return msgs, nil
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.logger.Printf("booking-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

// HandleBooking sends the confirmation email for one booking.confirmed
// message.
func (c *Consumer) HandleBooking(ctx context.Context, body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if c.AuditPath != "" {
		if err := c.audit(ev); err != nil {
			c.logger.Printf("booking-consumer: audit log: %v", err)
		}
	}
	if ev.Email == "" {
		return fmt.Errorf("booking %s: no recipient", ev.TicketNumber)
	}
	return c.sender.Send(ctx, ConfirmationEmail(ev))
}

// HandleEmail sends one email.requested message as is.
func (c *Consumer) HandleEmail(ctx context.Context, body []byte) error {
	var ev EmailRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.sender.Send(ctx, mail.Message{To: ev.To, Subject: ev.Subject, Body: ev.Body})
}

func (c *Consumer) audit(ev BookingConfirmedEvent) error {
	if err := os.MkdirAll(filepath.Dir(c.AuditPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(c.AuditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("[%s] Ticket confirmed | ticket=%s | user_id=%d | showtime_id=%d | showroom_id=%d | movie=%q | total=%.2f | seats=[%s]\n",
		ev.ConfirmedAt, ev.TicketNumber, ev.UserID, ev.ShowtimeID, ev.ShowroomID, ev.MovieTitle, ev.Total,
		strings.Join(ev.Seats, ","))
	_, err = f.WriteString(line)
	return err
}

// ConfirmationEmail renders the booking receipt.
func ConfirmationEmail(ev BookingConfirmedEvent) mail.Message {
	var b strings.Builder
	name := ev.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nYour booking is confirmed.\n\n", name)
	fmt.Fprintf(&b, "Ticket number: %s\n", ev.TicketNumber)
	fmt.Fprintf(&b, "Movie: %s\n", ev.MovieTitle)
	fmt.Fprintf(&b, "Showtime: %s (showroom %d)\n", ev.StartsAt, ev.ShowroomID)
	fmt.Fprintf(&b, "Seats: %s\n", strings.Join(ev.Seats, ", "))
	fmt.Fprintf(&b, "Tickets: %d adult, %d child, %d senior\n\n", ev.Adult, ev.Child, ev.Senior)
	fmt.Fprintf(&b, "Subtotal: $%.2f\n", ev.Subtotal)
	if ev.PromoCode != "" {
		fmt.Fprintf(&b, "Promo: %s\n", ev.PromoCode)
	}
	fmt.Fprintf(&b, "Tax: $%.2f\nTotal: $%.2f\n", ev.Tax, ev.Total)
	fmt.Fprintf(&b, "Paid with %s ending in %s\n", ev.CardBrand, ev.CardLast4)
	return mail.Message{
		To:      ev.Email,
		Subject: "Your tickets for " + ev.MovieTitle,
		Body:    b.String(),
	}
}

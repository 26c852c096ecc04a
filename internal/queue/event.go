// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the notification consumer.
package queue

// Queue names.  Both are durable and use the default exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	EmailRequestedQueue   = "email.requested"
)

// BookingConfirmedEvent is published after a ticket is committed.  It
// carries everything the confirmation email needs so the consumer never
// queries the database.
type BookingConfirmedEvent struct {
	TicketNumber string   `json:"ticket_number"`
	UserID       uint64   `json:"user_id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	ShowtimeID   uint64   `json:"showtime_id"`
	ShowroomID   uint64   `json:"showroom_id"`
	MovieTitle   string   `json:"movie_title"`
	StartsAt     string   `json:"starts_at"`
	Seats        []string `json:"seats"`
	Adult        int      `json:"adult"`
	Child        int      `json:"child"`
	Senior       int      `json:"senior"`
	PromoCode    string   `json:"promo_code,omitempty"`
	Subtotal     float64  `json:"subtotal"`
	Tax          float64  `json:"tax"`
	Total        float64  `json:"total"`
	CardBrand    string   `json:"card_brand"`
	CardLast4    string   `json:"card_last4"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// Email kinds carried by EmailRequestedEvent.
const (
	EmailVerify        = "verify"
	EmailPasswordReset = "password_reset"
	EmailPromotion     = "promotion"
	EmailTicketReturn  = "ticket_return"
	EmailProfileChange = "profile_change"
)

// EmailRequestedEvent asks the consumer to send an already composed email.
type EmailRequestedEvent struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

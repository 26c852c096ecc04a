package model

import (
	"strings"
	"time"
)

// TicketType is one of the priced audience categories.
type TicketType string

const (
	TicketAdult  TicketType = "ADULT"
	TicketChild  TicketType = "CHILD"
	TicketSenior TicketType = "SENIOR"
)

// TicketTypes lists the categories in display order.
var TicketTypes = []TicketType{TicketAdult, TicketChild, TicketSenior}

// ParseTicketType accepts any casing of a known type.
func ParseTicketType(s string) (TicketType, bool) {
	t := TicketType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TicketAdult, TicketChild, TicketSenior:
		return t, true
	}
	return "", false
}

// TicketCounts holds the requested quantity per category.
type TicketCounts struct {
	Adult  int `json:"adult"`
	Child  int `json:"child"`
	Senior int `json:"senior"`
}

// Total is the number of seats the counts pay for.
func (tc TicketCounts) Total() int { return tc.Adult + tc.Child + tc.Senior }

// Get returns the count for one category.
func (tc TicketCounts) Get(t TicketType) int {
	switch t {
	case TicketAdult:
		return tc.Adult
	case TicketChild:
		return tc.Child
	case TicketSenior:
		return tc.Senior
	}
	return 0
}

// With returns a copy with one category replaced.  Negative quantities
// are clamped to zero.
func (tc TicketCounts) With(t TicketType, qty int) TicketCounts {
	if qty < 0 {
		qty = 0
	}
	switch t {
	case TicketAdult:
		tc.Adult = qty
	case TicketChild:
		tc.Child = qty
	case TicketSenior:
		tc.Senior = qty
	}
	return tc
}

// TicketPrice is a row of the price table.  Price is in currency units.
type TicketPrice struct {
	ID    uint64     `json:"id"`
	Type  TicketType `json:"type"`
	Price float64    `json:"price"`
}

// CardSnapshot is the payment method recorded on a ticket.  Cards can be
// deleted later; the snapshot stays.
type CardSnapshot struct {
	CardID uint64 `json:"card_id,omitempty"`
	Brand  string `json:"brand"`
	Last4  string `json:"last4"`
}

// Ticket is a confirmed booking.  It is never updated; returning it
// deletes the row and frees its seats.
type Ticket struct {
	TicketNumber    string       `json:"ticket_number"`
	UserID          uint64       `json:"user_id"`
	ShowtimeID      uint64       `json:"showtime_id"`
	MovieID         uint64       `json:"movie_id"`
	MovieTitle      string       `json:"movie_title"`
	ShowroomID      uint64       `json:"showroom_id"`
	Showtime        time.Time    `json:"showtime"`
	Seats           []string     `json:"seats"`
	Counts          TicketCounts `json:"ticket_counts"`
	Subtotal        float64      `json:"subtotal"`
	PromoCode       string       `json:"promo_code,omitempty"`
	DiscountPercent float64      `json:"discount_percent,omitempty"`
	TaxRate         float64      `json:"tax_rate"`
	Tax             float64      `json:"tax"`
	Total           float64      `json:"total"`
	PaymentCard     CardSnapshot `json:"payment_card"`
	CreatedAt       time.Time    `json:"created_at"`
}

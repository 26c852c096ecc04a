// Package seating holds the per-checkout seat picking state: which seats
// the user selected for one showtime, bounded by the ticket counts and the
// seats already booked by others.
package seating

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ErrSeatBooked is returned when the seat belongs to a confirmed booking.
var ErrSeatBooked = errors.New("seat already booked")

// ErrSeatLimit is wrapped with the current cap when the selection is full.
var ErrSeatLimit = errors.New("seat limit reached")

// AdjustedNotice is reported when lowering ticket counts dropped seats.
const AdjustedNotice = "selection was adjusted"

// Selection is single-owner state and not safe for concurrent use.
// Seats are kept in the order they were picked; when the ticket total
// drops below the selection size, the most recently picked seats go first.
type Selection struct {
	unavailable map[string]bool
	counts      model.TicketCounts
	selected    []string
}

// New builds a selection for a showtime whose booked seats are given.
func New(booked []string, counts model.TicketCounts) *Selection {
	s := &Selection{unavailable: make(map[string]bool, len(booked))}
	for _, b := range booked {
		if code, err := model.ParseSeatCode(b); err == nil {
			s.unavailable[code] = true
		}
	}
	for _, t := range model.TicketTypes {
		s.counts = s.counts.With(t, counts.Get(t))
	}
	return s
}

// SelectSeat toggles a seat.  Deselecting is always allowed; selecting a
// booked seat or going past the ticket total is refused without changing
// anything.
func (s *Selection) SelectSeat(raw string) error {
	code, err := model.ParseSeatCode(raw)
	if err != nil {
		return err
	}
	if s.unavailable[code] {
		return ErrSeatBooked
	}
	if i := s.indexOf(code); i >= 0 {
		s.selected = append(s.selected[:i], s.selected[i+1:]...)
		return nil
	}
	if s.Remaining() <= 0 {
		return fmt.Errorf("%w: you can only select %d seats", ErrSeatLimit, s.counts.Total())
	}
	s.selected = append(s.selected, code)
	return nil
}

// SetTicketCount updates one category.  The returned flag is true when
// seats had to be dropped to fit the new total.
func (s *Selection) SetTicketCount(t model.TicketType, qty int) (adjusted bool) {
	s.counts = s.counts.With(t, qty)
	total := s.counts.Total()
	if len(s.selected) > total {
		s.selected = s.selected[:total]
		return true
	}
	return false
}

// MarkBooked records seats taken by someone else since the selection was
// built, e.g. after a 409 from the booking endpoint.  Matching seats are
// removed from the selection.
func (s *Selection) MarkBooked(codes []string) {
	for _, raw := range codes {
		code, err := model.ParseSeatCode(raw)
		if err != nil {
			continue
		}
		s.unavailable[code] = true
		if i := s.indexOf(code); i >= 0 {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
		}
	}
}

// Selected returns a copy of the picked seats in pick order.
func (s *Selection) Selected() []string {
	out := make([]string, len(s.selected))
	copy(out, s.selected)
	return out
}

// Counts returns the current ticket counts.
func (s *Selection) Counts() model.TicketCounts { return s.counts }

// Remaining is how many more seats may be picked.
func (s *Selection) Remaining() int { return s.counts.Total() - len(s.selected) }

// IsBooked reports whether a seat is unavailable for this showtime.
func (s *Selection) IsBooked(code string) bool { return s.unavailable[code] }

// CanCheckout is true when every ticket has a seat and there is at least
// one ticket.
func (s *Selection) CanCheckout() bool {
	total := s.counts.Total()
	return total > 0 && len(s.selected) == total
}

func (s *Selection) indexOf(code string) int {
	for i, c := range s.selected {
		if c == code {
			return i
		}
	}
	return -1
}

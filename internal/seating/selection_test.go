package seating

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

func TestSelectSeatRespectsTicketTotal(t *testing.T) {
	s := New(nil, model.TicketCounts{Adult: 1, Child: 1})

	require.NoError(t, s.SelectSeat("A1"))
	require.NoError(t, s.SelectSeat("a2"))
	err := s.SelectSeat("A3")
	require.ErrorIs(t, err, ErrSeatLimit)
	assert.Contains(t, err.Error(), "you can only select 2 seats")
	assert.Equal(t, []string{"A1", "A2"}, s.Selected())
	assert.True(t, s.CanCheckout())
}

func TestSelectSeatTogglesOff(t *testing.T) {
	s := New(nil, model.TicketCounts{Adult: 1})
	require.NoError(t, s.SelectSeat("B4"))
	require.NoError(t, s.SelectSeat("B4"))
	assert.Empty(t, s.Selected())
	assert.False(t, s.CanCheckout())
}

func TestSelectBookedSeatLeavesStateUntouched(t *testing.T) {
	s := New([]string{"c4"}, model.TicketCounts{Adult: 2})
	require.NoError(t, s.SelectSeat("A1"))

	err := s.SelectSeat("C4")
	assert.ErrorIs(t, err, ErrSeatBooked)
	assert.Equal(t, "seat already booked", err.Error())
	assert.Equal(t, []string{"A1"}, s.Selected())
	assert.True(t, s.IsBooked("C4"))
}

func TestSelectInvalidSeat(t *testing.T) {
	s := New(nil, model.TicketCounts{Adult: 2})
	assert.ErrorIs(t, s.SelectSeat("Z9"), model.ErrInvalidSeat)
	assert.Empty(t, s.Selected())
}

func TestLoweringCountDropsMostRecentSeats(t *testing.T) {
	s := New(nil, model.TicketCounts{Adult: 3})
	for _, c := range []string{"D1", "A1", "B2"} {
		require.NoError(t, s.SelectSeat(c))
	}

	adjusted := s.SetTicketCount(model.TicketAdult, 1)
	assert.True(t, adjusted)
	assert.Equal(t, []string{"D1"}, s.Selected())

	adjusted = s.SetTicketCount(model.TicketChild, 2)
	assert.False(t, adjusted)
	assert.Equal(t, 2, s.Remaining())
}

func TestSetTicketCountClampsNegative(t *testing.T) {
	s := New(nil, model.TicketCounts{Adult: 1})
	require.NoError(t, s.SelectSeat("A1"))
	assert.True(t, s.SetTicketCount(model.TicketAdult, -4))
	assert.Equal(t, 0, s.Counts().Adult)
	assert.Empty(t, s.Selected())
	assert.False(t, s.CanCheckout())
}

func TestZeroTicketsCannotCheckout(t *testing.T) {
	s := New(nil, model.TicketCounts{})
	assert.ErrorIs(t, s.SelectSeat("A1"), ErrSeatLimit)
	assert.False(t, s.CanCheckout())
}

func TestMarkBookedRemovesFromSelection(t *testing.T) {
	s := New(nil, model.TicketCounts{Adult: 2})
	require.NoError(t, s.SelectSeat("A1"))
	require.NoError(t, s.SelectSeat("A2"))

	s.MarkBooked([]string{"A2"})
	assert.Equal(t, []string{"A1"}, s.Selected())
	assert.ErrorIs(t, s.SelectSeat("A2"), ErrSeatBooked)
}

// Random walks over selects, deselects and count changes must never leave
// more seats than tickets.
func TestSelectionNeverExceedsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	codes := model.SeatCodes()
	for run := 0; run < 200; run++ {
		booked := []string{codes[rng.Intn(len(codes))], codes[rng.Intn(len(codes))]}
		s := New(booked, model.TicketCounts{Adult: rng.Intn(4), Child: rng.Intn(3), Senior: rng.Intn(3)})
		for step := 0; step < 60; step++ {
			if rng.Intn(4) == 0 {
				tt := model.TicketTypes[rng.Intn(len(model.TicketTypes))]
				s.SetTicketCount(tt, rng.Intn(6)-1)
			} else {
				before := s.Selected()
				code := codes[rng.Intn(len(codes))]
				if err := s.SelectSeat(code); err == ErrSeatBooked {
					assert.Equal(t, before, s.Selected())
				}
			}
			require.LessOrEqual(t, len(s.Selected()), s.Counts().Total())
		}
	}
}

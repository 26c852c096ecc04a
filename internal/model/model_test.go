package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeatCode(t *testing.T) {
	valid := map[string]string{"A1": "A1", "c4": "C4", " e8 ": "E8"}
	for in, want := range valid {
		got, err := ParseSeatCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "A", "F1", "A0", "A9", "A01", "A+1", "11", "AA1"} {
		_, err := ParseSeatCode(in)
		assert.ErrorIs(t, err, ErrInvalidSeat, in)
	}
}

func TestSeatCodesCoversGrid(t *testing.T) {
	codes := SeatCodes()
	require.Len(t, codes, SeatRows*SeatsPerRow)
	assert.Equal(t, "A1", codes[0])
	assert.Equal(t, "E8", codes[len(codes)-1])
}

func TestNormalizeRating(t *testing.T) {
	cases := map[string]string{
		"pg13":   RatingPG13,
		"PG-13":  RatingPG13,
		"nc_17":  RatingNC17,
		" r ":    RatingR,
		"g":      RatingG,
		"X":      RatingNR,
		"":       RatingNR,
		"Unrated": RatingNR,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRating(in), in)
	}
}

func TestTicketCountsWithClampsNegative(t *testing.T) {
	tc := TicketCounts{Adult: 2, Child: 1}.With(TicketChild, -3)
	assert.Equal(t, 0, tc.Child)
	assert.Equal(t, 2, tc.Total())
	assert.Equal(t, 2, tc.Get(TicketAdult))
}

func TestPromotionActiveOn(t *testing.T) {
	p := Promotion{StartDate: "2025-01-10", EndDate: "2025-01-20"}
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}
	assert.True(t, p.ActiveOn(at("2025-01-10T00:00:00Z")))
	assert.True(t, p.ActiveOn(at("2025-01-20T23:59:59Z")))
	assert.False(t, p.ActiveOn(at("2025-01-09T23:59:59Z")))
	assert.False(t, p.ActiveOn(at("2025-01-21T00:00:00Z")))
	assert.False(t, Promotion{StartDate: "bad", EndDate: "2025-01-20"}.ActiveOn(at("2025-01-15T00:00:00Z")))
}

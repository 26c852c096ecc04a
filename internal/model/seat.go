package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Every showroom shares the same fixed grid: rows A–E, seats 1–8.
const (
	SeatRows    = 5
	SeatsPerRow = 8
)

// ErrInvalidSeat is returned for codes outside the seating grid.
var ErrInvalidSeat = errors.New("invalid seat code")

// ParseSeatCode normalizes a code such as "c4" to "C4" and checks it
// against the grid.
func ParseSeatCode(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeat, raw)
	}
	row := s[0]
	if row < 'A' || row >= 'A'+SeatRows {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeat, raw)
	}
	if s[1] < '1' || s[1] > '9' {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeat, raw)
	}
	col, err := strconv.Atoi(s[1:])
	if err != nil || col < 1 || col > SeatsPerRow {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeat, raw)
	}
	return s, nil
}

// SeatCodes lists every seat of the grid in row-major order.
func SeatCodes() []string {
	out := make([]string, 0, SeatRows*SeatsPerRow)
	for r := 0; r < SeatRows; r++ {
		for c := 1; c <= SeatsPerRow; c++ {
			out = append(out, string(rune('A'+r))+strconv.Itoa(c))
		}
	}
	return out
}

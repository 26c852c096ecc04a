// Package scheduling decides whether a showtime may be placed in a
// showroom.  The same policy runs in the admin client (before any request
// is sent) and in the server (inside the scheduling transaction).
package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// DefaultBuffer is the minimum distance between two starts in one showroom.
const DefaultBuffer = 5 * time.Hour

var (
	// ErrInPast rejects starts at or before the reference instant.
	ErrInPast = errors.New("cannot schedule in the past")
	// ErrConflict rejects starts closer than the buffer to an existing one.
	ErrConflict = errors.New("showtime conflicts with an existing showtime")
)

// ConflictError names the existing start that blocked the candidate.
type ConflictError struct {
	Existing time.Time
	Buffer   time.Duration
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s at %s (minimum gap %s)", ErrConflict, e.Existing.UTC().Format(time.RFC3339), e.Buffer)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Policy is a flat buffer around every start.  Two starts conflict when
// they are strictly less than Buffer apart; exactly Buffer apart is fine.
// A fixed-runtime overlap rule (windows of length D overlap) is the same
// check with Buffer = D.
type Policy struct {
	Buffer time.Duration
}

// NewPolicy falls back to DefaultBuffer for non-positive values.
func NewPolicy(buffer time.Duration) Policy {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return Policy{Buffer: buffer}
}

// Conflicts reports whether two starts are within the buffer.
func (p Policy) Conflicts(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < p.Buffer
}

// Check validates a candidate against now and every existing start in the
// target showroom.  The past check runs first so a stale candidate is
// reported as such even when it also conflicts.
func (p Policy) Check(candidate, now time.Time, existing []time.Time) error {
	if !candidate.After(now) {
		return ErrInPast
	}
	for _, e := range existing {
		if p.Conflicts(candidate, e) {
			return &ConflictError{Existing: e, Buffer: p.Buffer}
		}
	}
	return nil
}

// Package service holds the workflows that span several repositories:
// booking, showtime scheduling, promotions and ticket returns.  Handlers
// call these for anything beyond a single-table read or write.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

// ValidationError reports bad input.  Handlers answer it with 400 and
// its message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// EmailPublisher queues composed emails.
type EmailPublisher interface {
	PublishEmail(ctx context.Context, ev queue.EmailRequestedEvent) error
}

// BookingPublisher queues booking confirmations.
type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

package client

import (
	"errors"
	"net/http"
)

// Checkout preconditions checked before any request is sent.
var (
	ErrNotAuthenticated  = errors.New("sign in to continue")
	ErrNoSeats           = errors.New("select at least one seat")
	ErrSeatCountMismatch = errors.New("number of seats must match the number of tickets")
	ErrNoPaymentCard     = errors.New("select a payment card")
	ErrIncompleteCard    = errors.New("enter card number, expiry, CVV, billing name and full billing address")
	ErrPromoCodeEmpty    = errors.New("enter a promo code")
)

// Scheduler preconditions.
var (
	ErrNoShowroom      = errors.New("select a showroom")
	ErrNoMovie         = errors.New("select a movie")
	ErrNoTime          = errors.New("select a start time")
	ErrUnknownShowroom = errors.New("unknown showroom")
)

// Messages shown for the error classes the workflow distinguishes.
const (
	MsgSomethingWrong = "something went wrong"
	MsgSeatsTaken     = "seats already booked, choose different seats"
	MsgPromoNotFound  = "Promo code not found"
)

// APIError is a non-2xx answer from the backend.  Message is the server's
// "error" field, or MsgSomethingWrong when the body carried none.
type APIError struct {
	Status  int
	Message string
	// Seats lists the conflicting seats of a 409 booking answer.
	Seats []string
}

func (e *APIError) Error() string { return e.Message }

func statusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// IsUnauthorized reports a 401; the caller should send the user to login.
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// IsConflict reports a 409.
func IsConflict(err error) bool { return statusOf(err) == http.StatusConflict }

// IsNotFound reports a 404.
func IsNotFound(err error) bool { return statusOf(err) == http.StatusNotFound }

// Package repository defines the MySQL data access layer and the sentinel
// errors shared across repositories.  Handlers and services translate
// these values into HTTP statuses.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records, such as deleting a showtime that still
// has tickets.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by user creation on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrCodeExists is returned by promotion creation on a duplicate code.
var ErrCodeExists = errors.New("promo code already exists")

// ErrCardLimit is returned when a user already stores the maximum number
// of payment cards.
var ErrCardLimit = errors.New("payment card limit reached")

// ErrSeatTaken is matched by SeatTakenError.
var ErrSeatTaken = errors.New("seats already booked")

// SeatTakenError lists the requested seats that were booked by someone
// else first.
type SeatTakenError struct {
	Seats []string
}

func (e *SeatTakenError) Error() string {
	if len(e.Seats) == 0 {
		return ErrSeatTaken.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSeatTaken, strings.Join(e.Seats, ","))
}

func (e *SeatTakenError) Unwrap() error { return ErrSeatTaken }

// MySQL server error numbers the repositories react to.
const (
	errDuplicateEntry  = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

func mysqlErrno(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlErrno(err) == errDuplicateEntry }

func isReferenced(err error) bool { return mysqlErrno(err) == errRowIsReferenced }

func isMissingParent(err error) bool { return mysqlErrno(err) == errNoReferencedRow }

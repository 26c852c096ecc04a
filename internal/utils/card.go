package utils

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrCardNumber = errors.New("card number must be 12-19 digits")
	ErrCardExpiry = errors.New("card is expired or expiry is invalid")
	ErrCardCVV    = errors.New("cvv must be 3 or 4 digits")
)

// NormalizeCardNumber strips spaces and dashes and checks the digit count.
func NormalizeCardNumber(raw string) (string, error) {
	pan := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	if len(pan) < 12 || len(pan) > 19 || !allDigits(pan) {
		return "", ErrCardNumber
	}
	return pan, nil
}

// CardBrand detects the network from the leading digits.
func CardBrand(pan string) string {
	switch {
	case strings.HasPrefix(pan, "4"):
		return "Visa"
	case len(pan) >= 2 && pan[0] == '5' && pan[1] >= '1' && pan[1] <= '5':
		return "Mastercard"
	case strings.HasPrefix(pan, "34"), strings.HasPrefix(pan, "37"):
		return "Amex"
	}
	return "Card"
}

// Last4 returns the final four digits of a normalized number.
func Last4(pan string) string {
	if len(pan) <= 4 {
		return pan
	}
	return pan[len(pan)-4:]
}

// CheckExpiry accepts cards valid through the end of their expiry month.
func CheckExpiry(month, year int, now time.Time) error {
	if month < 1 || month > 12 || year < 2000 {
		return ErrCardExpiry
	}
	end := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(end) {
		return ErrCardExpiry
	}
	return nil
}

// CheckCVV validates length and digits only; the value is never stored.
func CheckCVV(cvv string) error {
	if (len(cvv) != 3 && len(cvv) != 4) || !allDigits(cvv) {
		return ErrCardCVV
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

package middleware

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyName   = "name"
	KeyEmail  = "email"
)

// ErrNoIdentity is returned by UserID on unauthenticated requests.
var ErrNoIdentity = errors.New("invalid user_id in context")

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, error) {
	switch t := c.Get(KeyUserID).(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, ErrNoIdentity
}

// Role returns the authenticated role or "".
func Role(c echo.Context) string {
	r, _ := c.Get(KeyRole).(string)
	return r
}

// subject is the rate-limit identity: the user id, or "anon".
func subject(c echo.Context) string {
	if id, err := UserID(c); err == nil && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

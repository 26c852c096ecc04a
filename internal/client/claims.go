package client

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// Identity is what the UI shows about the signed-in user.
type Identity struct {
	UserID  uint64
	Role    string
	Name    string
	Email   string
	Expires time.Time
}

// IsAdmin reports whether the admin console should be offered.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// DisplayClaims decodes an access token WITHOUT checking its signature.
// The result is for display and navigation only; the server authorizes
// every request on its own.
func DisplayClaims(token string) (Identity, error) {
	var claims utils.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("decode token: %w", err)
	}
	id, err := claims.UserID()
	if err != nil {
		return Identity{}, fmt.Errorf("decode token subject: %w", err)
	}
	out := Identity{UserID: id, Role: claims.Role, Name: claims.Name, Email: claims.Email}
	if claims.ExpiresAt != nil {
		out.Expires = claims.ExpiresAt.Time
	}
	return out, nil
}

package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability.  Redis is
// optional, so it is reported but never fails the check.
type HealthHandler struct {
	DB      Pinger
	RedisUp func(ctx context.Context) bool
}

// Health answers 200 when the database responds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	status, code := echo.Map{"status": "ok", "db": "ok", "redis": "disabled"}, http.StatusOK
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			status["status"], status["db"], code = "degraded", "down", http.StatusServiceUnavailable
		}
	}
	if h.RedisUp != nil {
		status["redis"] = "down"
		if h.RedisUp(ctx) {
			status["redis"] = "ok"
		}
	}
	return c.JSON(code, status)
}

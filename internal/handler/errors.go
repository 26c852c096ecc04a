package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/scheduling"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail writes the JSON error for err.  Known domain errors map to 4xx;
// anything else is logged and answered with a generic 500.
func fail(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		st *repository.SeatTakenError
		ce *scheduling.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg})
	case errors.As(err, &st):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "seats already booked, choose different seats",
			"seats": st.Seats,
		})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{"error": ce.Error(), "existing": ce.Existing})
	case errors.Is(err, scheduling.ErrInPast):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrPromoNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrPromoRequired), errors.Is(err, service.ErrPromoInactive):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrCardLimit):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "You can store at most 4 payment cards"})
	case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrCodeExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource is still referenced"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("handler: %s %s timed out", c.Request().Method, c.Path())
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"})
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// currentUser reads the id JWTAuth stored; ok is false when it is absent.
func currentUser(c echo.Context) (uint64, bool) {
	id, err := middleware.UserID(c)
	return id, err == nil && id != 0
}

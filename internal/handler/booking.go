package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// Booker prices and confirms bookings.
type Booker interface {
	Book(ctx context.Context, userID uint64, req service.BookingRequest) (model.Ticket, error)
	Quote(ctx context.Context, userID uint64, req service.BookingRequest) (service.Quote, error)
}

// BookingHandler serves checkout.
type BookingHandler struct {
	Bookings Booker
}

func NewBookingHandler(b Booker) *BookingHandler { return &BookingHandler{Bookings: b} }

// Book handles POST /api/bookings.  Seats taken by someone else answer
// 409 with the conflicting seat codes.
func (h *BookingHandler) Book(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ShowtimeID == 0 {
		return badRequest(c, "showtime_id is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Bookings.Book(ctx, uid, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Quote handles POST /api/bookings/quote.
func (h *BookingHandler) Quote(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	q, err := h.Bookings.Quote(ctx, uid, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

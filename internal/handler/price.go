package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// PriceStore is the ticket price table.
type PriceStore interface {
	List(ctx context.Context) ([]model.TicketPrice, error)
	Update(ctx context.Context, id uint64, price float64) (model.TicketPrice, error)
}

type PriceHandler struct {
	Prices PriceStore
}

func NewPriceHandler(p PriceStore) *PriceHandler { return &PriceHandler{Prices: p} }

type priceReq struct {
	Price float64 `json:"price" validate:"gt=0"`
}

// List handles GET /api/tickets/prices.
func (h *PriceHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ps, err := h.Prices.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": ps})
}

// Update handles PUT /api/tickets/prices/:id.
func (h *PriceHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid price id")
	}
	var req priceReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Prices.Update(ctx, id, req.Price)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

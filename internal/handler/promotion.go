package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// Promotions is the promotion workflow.
type Promotions interface {
	Validate(ctx context.Context, code string) (model.Promotion, error)
	Create(ctx context.Context, in service.PromotionInput) (model.Promotion, error)
	Send(ctx context.Context, id uint64) (int, error)
}

// PromotionLister lists every promotion.
type PromotionLister interface {
	List(ctx context.Context) ([]model.Promotion, error)
}

type PromotionHandler struct {
	Promos  PromotionLister
	Service Promotions
}

func NewPromotionHandler(promos PromotionLister, svc Promotions) *PromotionHandler {
	return &PromotionHandler{Promos: promos, Service: svc}
}

type promotionReq struct {
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
}

// Validate handles GET /api/promotions/validate?code=.
func (h *PromotionHandler) Validate(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Service.Validate(ctx, c.QueryParam("code"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"code": p.Code, "discount_percent": p.DiscountPercent})
}

// List handles GET /api/promotions.
func (h *PromotionHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ps, err := h.Promos.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": ps})
}

// Create handles POST /api/promotions.
func (h *PromotionHandler) Create(c echo.Context) error {
	var req promotionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Service.Create(ctx, service.PromotionInput(req))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Send handles POST /api/promotions/:id/send.
func (h *PromotionHandler) Send(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid promotion id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Service.Send(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"promotion_id": id, "emails_sent": n})
}

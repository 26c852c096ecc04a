package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// ProfileActions are the account workflows behind /api/profile.
type ProfileActions interface {
	UpdateProfile(ctx context.Context, userID uint64, in service.ProfileUpdate) (model.User, error)
	ChangePassword(ctx context.Context, userID uint64, current, next string) error
	AddCard(ctx context.Context, userID uint64, nc service.NewCard) (model.PaymentCard, error)
	ReturnTicket(ctx context.Context, userID uint64, ticketNumber string) (service.ReturnResult, error)
}

// ProfileReader loads what the profile page shows.
type ProfileReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// CardReader lists and removes saved cards.
type CardReader interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.PaymentCard, error)
	Delete(ctx context.Context, id, userID uint64) error
}

// TicketLister lists a user's tickets.
type TicketLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error)
}

// ProfileHandler serves the signed-in user's account.
type ProfileHandler struct {
	Users   ProfileReader
	Cards   CardReader
	Tickets TicketLister
	Profile ProfileActions
}

func NewProfileHandler(users ProfileReader, cards CardReader, tickets TicketLister, profile ProfileActions) *ProfileHandler {
	return &ProfileHandler{Users: users, Cards: cards, Tickets: tickets, Profile: profile}
}

type passwordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Get handles GET /api/profile: the user, saved cards and tickets.
func (h *ProfileHandler) Get(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	cards, err := h.Cards.ListByUser(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	tickets, err := h.Tickets.ListByUser(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "cards": cards, "tickets": tickets})
}

// Update handles PUT /api/profile.
func (h *ProfileHandler) Update(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Profile.UpdateProfile(ctx, uid, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// ChangePassword handles POST /api/profile/password.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req passwordReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Profile.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated"})
}

// AddCard handles POST /api/profile/cards.
func (h *ProfileHandler) AddCard(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.NewCard
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	card, err := h.Profile.AddCard(ctx, uid, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, card)
}

// DeleteCard handles DELETE /api/profile/cards/:id.
func (h *ProfileHandler) DeleteCard(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid card id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Cards.Delete(ctx, id, uid); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReturnTicket handles DELETE /api/profile/tickets/:ticketNumber.
func (h *ProfileHandler) ReturnTicket(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	number := strings.TrimSpace(c.Param("ticketNumber"))
	if number == "" {
		return badRequest(c, "ticket number is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Profile.ReturnTicket(ctx, uid, number)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

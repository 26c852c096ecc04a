package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// UserAdminStore is the user persistence behind the admin console.
type UserAdminStore interface {
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	UpdateNameRole(ctx context.Context, id uint64, name, role string) error
	SetStatus(ctx context.Context, id uint64, status string) error
	Delete(ctx context.Context, id uint64) error
}

// AdminUserHandler manages accounts.  Admins cannot suspend, demote or
// delete themselves.
type AdminUserHandler struct {
	Users      UserAdminStore
	Tokens     TokenStore
	BcryptCost int
}

func NewAdminUserHandler(users UserAdminStore, tokens TokenStore, cost int) *AdminUserHandler {
	return &AdminUserHandler{Users: users, Tokens: tokens, BcryptCost: cost}
}

type createAdminReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=120"`
}

type updateUserReq struct {
	Name string `json:"name" validate:"required,max=120"`
	Role string `json:"role" validate:"required,oneof=USER ADMIN"`
}

// List handles GET /api/admin/users.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// CreateAdmin handles POST /api/admin/users/create-admin.  The account is
// active and verified immediately.
func (h *AdminUserHandler) CreateAdmin(c echo.Context) error {
	var req createAdminReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Users.Create(ctx, repository.NewUser{
		Email:         req.Email,
		Name:          req.Name,
		Password:      req.Password,
		Role:          model.RoleAdmin,
		Status:        model.StatusActive,
		EmailVerified: true,
	}, h.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Update handles PUT /api/admin/users/:id.
func (h *AdminUserHandler) Update(c echo.Context) error {
	id, ok, err := h.target(c)
	if !ok {
		return err
	}
	var req updateUserReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	if self, _ := currentUser(c); self == id && req.Role != model.RoleAdmin {
		return badRequest(c, "cannot remove your own admin role")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdateNameRole(ctx, id, strings.TrimSpace(req.Name), req.Role); err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Suspend handles POST /api/admin/users/:id/suspend and ends the user's
// sessions.
func (h *AdminUserHandler) Suspend(c echo.Context) error {
	return h.setStatus(c, model.StatusSuspended)
}

// Unsuspend handles POST /api/admin/users/:id/unsuspend.
func (h *AdminUserHandler) Unsuspend(c echo.Context) error {
	return h.setStatus(c, model.StatusActive)
}

func (h *AdminUserHandler) setStatus(c echo.Context, status string) error {
	id, ok, err := h.target(c)
	if !ok {
		return err
	}
	if self, _ := currentUser(c); self == id && status == model.StatusSuspended {
		return badRequest(c, "cannot suspend yourself")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetStatus(ctx, id, status); err != nil {
		return fail(c, err)
	}
	if status == model.StatusSuspended {
		if err := h.Tokens.RevokeAll(ctx, id); err != nil {
			return fail(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}

// Delete handles DELETE /api/admin/users/:id.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	id, ok, err := h.target(c)
	if !ok {
		return err
	}
	if self, _ := currentUser(c); self == id {
		return badRequest(c, "cannot delete yourself")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// target parses :id.  When it is invalid the 400 is written and ok is
// false; err is whatever writing the response returned.
func (h *AdminUserHandler) target(c echo.Context) (id uint64, ok bool, err error) {
	id, ok = paramID(c, "id")
	if !ok {
		return 0, false, badRequest(c, "invalid user id")
	}
	return id, true, nil
}

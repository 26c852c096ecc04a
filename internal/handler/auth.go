package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// Lifetimes of the single-use email tokens.
const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = 2 * time.Hour
)

// AccountStore is the user persistence the auth endpoints need.
type AccountStore interface {
	Create(ctx context.Context, nu repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetVerifyToken(ctx context.Context, id uint64, hash string, exp time.Time) error
	Verify(ctx context.Context, hash string) (uint64, error)
	SetResetToken(ctx context.Context, id uint64, hash string, exp time.Time) error
	ResetPassword(ctx context.Context, hash, password string, cost int) (uint64, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Validate(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAll(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  AccountStore
	Tokens TokenStore
	Emails service.EmailPublisher
}

func NewAuthHandler(cfg config.Config, u AccountStore, t TokenStore, emails service.EmailPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Emails: emails}
}

// ----- DTOs -----

type registerReq struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	Name            string `json:"name" validate:"required,max=120"`
	PromotionsOptIn bool   `json:"promotions_opt_in"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotReq struct {
	Email string `json:"email" validate:"required,email"`
}

type resetReq struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates an INACTIVE account and queues the verification email.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email:           req.Email,
		Name:            req.Name,
		Password:        req.Password,
		Role:            model.RoleUser,
		Status:          model.StatusInactive,
		PromotionsOptIn: req.PromotionsOptIn,
	}, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return fail(c, err)
	}

	tok, err := utils.NewOpaqueToken(verifyTokenTTL)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Users.SetVerifyToken(ctx, uid, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		return fail(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	h.queue(c, queue.EmailRequestedEvent{
		Kind:    queue.EmailVerify,
		To:      email,
		Subject: "Verify your email",
		Body: fmt.Sprintf("Hi %s,\n\nConfirm your account within 24 hours:\n%s\n",
			strings.TrimSpace(req.Name), h.link("/verify", tok.Raw)),
	})
	return c.JSON(http.StatusCreated, echo.Map{
		"user":    userPart{ID: uid, Email: email, Name: strings.TrimSpace(req.Name), Role: model.RoleUser},
		"message": "Registration successful. Check your email to verify your account.",
	})
}

// Verify activates the account owning ?token=.
func (h *AuthHandler) Verify(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("token"))
	if raw == "" {
		return badRequest(c, "token is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Users.Verify(ctx, utils.HashToken(raw)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return badRequest(c, "invalid or expired token")
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified. You can now log in."})
}

// Login checks credentials and account state and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	switch {
	case u.Status == model.StatusSuspended:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
	case !u.EmailVerified || u.Status != model.StatusActive:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email not verified"})
	}

	resp, err := h.issue(c, u, "")
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token, rotates it and returns a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashToken(strings.TrimSpace(req.RefreshToken))
	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Tokens.Validate(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.Status != model.StatusActive) {
		_ = h.Tokens.RevokeAll(ctx, uid)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return fail(c, err)
	}
	resp, err := h.issue(c, u, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every session of the
// bearer when no body token is given.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashToken(raw)
		if _, err := h.Tokens.Validate(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.Revoke(ctx, hash); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	if bearer, ok := middleware.BearerToken(c); ok {
		claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, bearer)
		if err != nil {
			return unauthorized(c)
		}
		uid, _ := claims.UserID()
		if err := h.Tokens.RevokeAll(ctx, uid); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return badRequest(c, "provide Authorization header or refresh_token")
}

// Forgot always answers 200 so it cannot be used to probe for accounts.
func (h *AuthHandler) Forgot(c echo.Context) error {
	var req forgotReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	resp := echo.Map{"message": "If that email exists, a reset link has been sent."}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusOK, resp)
	}
	if err != nil {
		return fail(c, err)
	}
	tok, err := utils.NewOpaqueToken(resetTokenTTL)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Users.SetResetToken(ctx, u.ID, utils.HashToken(tok.Raw), tok.Exp); err != nil {
		return fail(c, err)
	}
	h.queue(c, queue.EmailRequestedEvent{
		Kind:    queue.EmailPasswordReset,
		To:      u.Email,
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Hi %s,\n\nReset your password within 2 hours:\n%s\n", u.Name, h.link("/reset-password", tok.Raw)),
	})
	return c.JSON(http.StatusOK, resp)
}

// Reset sets a new password from a reset token and ends every session.
func (h *AuthHandler) Reset(c echo.Context) error {
	var req resetReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	uid, err := h.Users.ResetPassword(ctx, utils.HashToken(strings.TrimSpace(req.Token)), req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrNotFound) {
		return badRequest(c, "invalid or expired token")
	}
	if err != nil {
		return fail(c, err)
	}
	if err := h.Tokens.RevokeAll(ctx, uid); err != nil {
		log.Printf("auth: revoke sessions of %d after reset: %v", uid, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated"})
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
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
	return c.JSON(http.StatusOK, u)
}

// issue signs an access token and stores a new refresh token.  With a
// non-empty oldHash the old refresh token is rotated in the same step.
func (h *AuthHandler) issue(c echo.Context, u model.User, oldHash string) (authResp, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret,
		utils.Identity{UserID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewOpaqueToken(time.Duration(h.Cfg.RefreshTTLDays) * 24 * time.Hour)
	if err != nil {
		return authResp{}, err
	}
	newHash := utils.HashToken(refresh.Raw)
	if oldHash != "" {
		err = h.Tokens.Rotate(ctx, u.ID, oldHash, newHash, refresh.Exp)
	} else {
		err = h.Tokens.Store(ctx, u.ID, newHash, refresh.Exp)
	}
	if err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

func (h *AuthHandler) link(path, token string) string {
	return strings.TrimRight(h.Cfg.FrontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (h *AuthHandler) queue(c echo.Context, ev queue.EmailRequestedEvent) {
	if h.Emails == nil {
		return
	}
	if err := h.Emails.PublishEmail(c.Request().Context(), ev); err != nil {
		log.Printf("auth: queue %s email for %s failed: %v", ev.Kind, ev.To, err)
	}
}

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const secret = "router-secret"

type memPrices struct{ items []model.TicketPrice }

func (m *memPrices) List(context.Context) ([]model.TicketPrice, error) { return m.items, nil }

func (m *memPrices) Update(_ context.Context, id uint64, price float64) (model.TicketPrice, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Price = price
			return m.items[i], nil
		}
	}
	return model.TicketPrice{}, nil
}

func newServer(t *testing.T) (*echo.Echo, *memPrices) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	prices := &memPrices{items: []model.TicketPrice{{ID: 1, Type: model.TicketAdult, Price: 12}}}
	e := echo.New()
	e.Validator = handler.NewValidator()
	Register(e, Handlers{
		Health:    &handler.HealthHandler{},
		Prices:    handler.NewPriceHandler(prices),
		Bookings:  handler.NewBookingHandler(nil),
		Auth:      handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil, nil),
		Showrooms: handler.NewShowroomHandler(nil, nil),
	}, Options{
		JWTSecret: secret,
		Redis:     rdb,
		Cache:     config.CacheConfig{Enabled: true, TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 16},
		RateLimit: config.RateLimitConfig{Enabled: true, Capacity: 100, RefillTokens: 1,
			RefillInterval: time.Second, TTL: time.Minute, KeyStrategy: "ip_route", Prefix: "rl"},
		AuthRateLimit: config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1,
			RefillInterval: time.Hour, TTL: 5 * time.Hour, KeyStrategy: "ip_route", Prefix: "rl:auth"},
	})
	return e, prices
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, utils.Identity{UserID: 1, Role: role}, 5)
	require.NoError(t, err)
	return at.Token
}

func send(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoleGating(t *testing.T) {
	e, _ := newServer(t)

	assert.Equal(t, http.StatusOK, send(e, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, send(e, http.MethodGet, "/api/tickets/prices", "", "").Code)

	body := `{"price":14}`
	assert.Equal(t, http.StatusUnauthorized, send(e, http.MethodPut, "/api/tickets/prices/1", "", body).Code)
	assert.Equal(t, http.StatusForbidden, send(e, http.MethodPut, "/api/tickets/prices/1", bearer(t, model.RoleUser), body).Code)
	assert.Equal(t, http.StatusOK, send(e, http.MethodPut, "/api/tickets/prices/1", bearer(t, model.RoleAdmin), body).Code)

	assert.Equal(t, http.StatusUnauthorized, send(e, http.MethodPost, "/api/bookings", "", `{"showtime_id":1}`).Code)
	// a customer reaches the handler, which rejects the incomplete body
	assert.Equal(t, http.StatusBadRequest, send(e, http.MethodPost, "/api/bookings", bearer(t, model.RoleUser), `{}`).Code)
}

func TestAdminWritePurgesCachedPrices(t *testing.T) {
	e, _ := newServer(t)

	first := send(e, http.MethodGet, "/api/tickets/prices", "", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := send(e, http.MethodGet, "/api/tickets/prices", "", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	rec := send(e, http.MethodPut, "/api/tickets/prices/1", bearer(t, model.RoleAdmin), `{"price":15.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	after := send(e, http.MethodGet, "/api/tickets/prices", "", "")
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	assert.Contains(t, after.Body.String(), "15.5")
}

func TestCredentialEndpointsUseStrictBucket(t *testing.T) {
	e, _ := newServer(t)

	rec := send(e, http.MethodPost, "/api/auth/login", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = send(e, http.MethodPost, "/api/auth/login", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// the general bucket is separate
	assert.Equal(t, http.StatusOK, send(e, http.MethodGet, "/api/tickets/prices", "", "").Code)
}

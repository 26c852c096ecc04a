package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, utils.Identity{UserID: id, Role: role, Name: "Ann", Email: "ann@example.com"}, 5)
	require.NoError(t, err)
	return at.Token
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(secret), RequireRole(model.RoleAdmin))
	g.GET("/who", func(c echo.Context) error {
		id, err := UserID(c)
		require.NoError(t, err)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c), "name": c.Get(KeyName)})
	})

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin/who", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin/who", "garbage").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin/who", token(t, 3, model.RoleUser)).Code)

	rec := do(e, http.MethodGet, "/admin/who", token(t, 3, model.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":3,"role":"ADMIN","name":"Ann"}`, rec.Body.String())
}

func TestJWTAuthRejectsOtherSecret(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, JWTAuth("other"))
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/x", token(t, 1, model.RoleUser)).Code)
}

func TestUserIDConversions(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := UserID(c)
	assert.ErrorIs(t, err, ErrNoIdentity)
	for _, v := range []any{uint64(7), 7, int64(7), float64(7), "7"} {
		c.Set(KeyUserID, v)
		id, err := UserID(c)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), id)
	}
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))

	first := do(e, http.MethodGet, "/p", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/p", "").Code)

	blocked := do(e, http.MethodGet, "/p", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/p", "").Code)
	}
}

func TestRedisCacheHitAndPurge(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 10}
	calls := 0
	e := echo.New()
	e.GET("/api/movies", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb))
	e.POST("/api/movies", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, PurgeCache(cfg, rdb))
	mr.Set("rl:keep", "1")

	miss := do(e, http.MethodGet, "/api/movies?title=a", "")
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	hit := do(e, http.MethodGet, "/api/movies?title=a", "")
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.JSONEq(t, miss.Body.String(), hit.Body.String())
	assert.Equal(t, 1, calls)

	assert.Equal(t, "MISS", do(e, http.MethodGet, "/api/movies?title=b", "").Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/movies", "").Code)
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/api/movies?title=a", "").Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
	assert.True(t, mr.Exists("rl:keep"))
}

func TestRedisCacheSkipsErrorsAndLargeBodies(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8}
	e := echo.New()
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, "this body is too long") }, NewRedisCache(cfg, rdb))
	e.GET("/missing", func(c echo.Context) error { return c.JSON(http.StatusNotFound, echo.Map{"error": "x"}) }, NewRedisCache(cfg, rdb))

	do(e, http.MethodGet, "/big", "")
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/big", "").Header().Get("X-Cache"))
	do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/missing", "").Header().Get("X-Cache"))
}

func TestRedisCacheLogsFailedWrites(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 10}
	e := echo.New()
	e.GET("/prices", func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"items": []int{1}}) }, NewRedisCache(cfg, rdb))

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	mr.SetError("READONLY replica")

	rec := do(e, http.MethodGet, "/prices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, buf.String(), "cache: write failed")
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{}, nil), NewRedisCache(config.CacheConfig{}, nil))
	rec := do(e, http.MethodGet, "/p", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Movies     *handler.MovieHandler
	Showrooms  *handler.ShowroomHandler
	Bookings   *handler.BookingHandler
	Profile    *handler.ProfileHandler
	Promotions *handler.PromotionHandler
	Prices     *handler.PriceHandler
	AdminUsers *handler.AdminUserHandler
}

// Options carries the cross-cutting settings of the route tree.  A nil
// Redis client turns caching and rate limiting into pass-throughs.
type Options struct {
	JWTSecret     string
	Redis         *redis.Client
	Cache         config.CacheConfig
	RateLimit     config.RateLimitConfig
	AuthRateLimit config.RateLimitConfig
}

// Register mounts the whole API on e.
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/healthz", h.Health.Health)

	api := e.Group("/api", middleware.NewTokenBucket(o.RateLimit, o.Redis))
	RegisterAuth(api, h.Auth, o)
	RegisterPublic(api, h, o)
	RegisterCustomer(api, h, o.JWTSecret)
	RegisterAdmin(api, h, o)
}

// RegisterAuth mounts /api/auth.  Credential endpoints share the stricter
// auth bucket.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, o Options) {
	g := api.Group("/auth")
	strict := middleware.NewTokenBucket(o.AuthRateLimit, o.Redis)
	g.POST("/register", a.Register, strict)
	g.POST("/login", a.Login, strict)
	g.POST("/forgot", a.Forgot, strict)
	g.POST("/reset", a.Reset, strict)
	g.GET("/verify", a.Verify)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(o.JWTSecret))
}

// RegisterPublic mounts the unauthenticated browse endpoints.  Catalog
// and price reads are served through the response cache.
func RegisterPublic(api *echo.Group, h Handlers, o Options) {
	cached := middleware.NewRedisCache(o.Cache, o.Redis)

	api.GET("/movies", h.Movies.List, cached)
	api.GET("/movies/now-showing", h.Movies.NowShowing, cached)
	api.GET("/movies/upcoming", h.Movies.Upcoming, cached)
	api.GET("/movies/:id", h.Movies.Get, cached)
	api.GET("/tickets/prices", h.Prices.List, cached)

	api.GET("/showrooms", h.Showrooms.List)
	api.GET("/showrooms/:id/showtimes", h.Showrooms.Showtimes)
	api.GET("/showtimes", h.Showrooms.ListShowtimes)
	api.GET("/showtimes/:id", h.Showrooms.GetShowtime)

	api.GET("/promotions/validate", h.Promotions.Validate)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RegisterAdmin mounts ADMIN-only write endpoints.  Every successful
// write purges the response cache.
func RegisterAdmin(api *echo.Group, h Handlers, o Options) {
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(o.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.PurgeCache(o.Cache, o.Redis),
	}

	api.POST("/movies", h.Movies.Create, admin...)
	api.PUT("/movies/:id", h.Movies.Update, admin...)
	api.DELETE("/movies/:id", h.Movies.Delete, admin...)

	api.POST("/showrooms", h.Showrooms.Create, admin...)
	api.DELETE("/showrooms/:id", h.Showrooms.Delete, admin...)
	api.POST("/showrooms/:id/showtimes", h.Showrooms.Schedule, admin...)
	api.DELETE("/showrooms/:id/showtimes", h.Showrooms.Unschedule, admin...)

	api.GET("/promotions", h.Promotions.List, admin...)
	api.POST("/promotions", h.Promotions.Create, admin...)
	api.POST("/promotions/:id/send", h.Promotions.Send, admin...)

	api.PUT("/tickets/prices/:id", h.Prices.Update, admin...)

	u := api.Group("/admin/users", admin...)
	u.GET("", h.AdminUsers.List)
	u.POST("/create-admin", h.AdminUsers.CreateAdmin)
	u.PUT("/:id", h.AdminUsers.Update)
	u.DELETE("/:id", h.AdminUsers.Delete)
	u.POST("/:id/suspend", h.AdminUsers.Suspend)
	u.POST("/:id/unsuspend", h.AdminUsers.Unsuspend)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RegisterCustomer mounts checkout and profile routes.  Any signed-in
// role may use them; admins book tickets like everyone else.
func RegisterCustomer(api *echo.Group, h Handlers, jwtSecret string) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	}

	b := api.Group("/bookings", auth...)
	b.POST("", h.Bookings.Book)
	b.POST("/quote", h.Bookings.Quote)

	p := api.Group("/profile", auth...)
	p.GET("", h.Profile.Get)
	p.PUT("", h.Profile.Update)
	p.POST("/password", h.Profile.ChangePassword)
	p.POST("/cards", h.Profile.AddCard)
	p.DELETE("/cards/:id", h.Profile.DeleteCard)
	p.DELETE("/tickets/:ticketNumber", h.Profile.ReturnTicket)
}

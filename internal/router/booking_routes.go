package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RegisterBookings registers booking endpoints under /v1/bookings.  Every
// route requires a valid JWT; guests may only touch their own bookings,
// which the coordinator enforces.  Listing all bookings and the status
// override are ADMIN only.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
		limit,
	)
	g.POST("", h.Create)
	g.GET("/my-bookings", h.Mine)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/cancel", h.Cancel)
	g.POST("/:id/pay", h.Pay)

	admin := g.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.GET("", h.List)
	admin.PUT("/:id/status", h.SetStatus)
}

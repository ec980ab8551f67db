package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RegisterHotels registers the public catalog, whose GET responses go
// through the Redis cache, and the admin-only create route.
func RegisterHotels(e *echo.Echo, h *handler.HotelHandler, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	pub := e.Group("/v1/hotels", limit, cache)
	pub.GET("", h.List)
	pub.GET("/:id", h.Get)
	pub.GET("/:id/availability", h.Availability)

	e.POST("/v1/hotels", h.Create,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		limit,
	)
}

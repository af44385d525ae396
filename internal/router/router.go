// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-booking-engine/internal/handler"
	"github.com/iliyamo/show-booking-engine/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication and
// no signature: currently only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse endpoints: show
// listing, show detail and the occupied-seat view of a show.  cacheMW
// may be nil when Redis is not configured; when present it is applied
// to these read-only routes so hot lookups are served from cache.
func RegisterPublic(e *echo.Echo, s *handler.ShowHandler, b *handler.BookingHandler, cacheMW echo.MiddlewareFunc) {
	g := e.Group("")
	if cacheMW != nil {
		g.Use(cacheMW)
	}
	g.GET("/v1/shows", s.ListShows)
	g.GET("/v1/shows/:id", s.GetShow)
	// Seat occupancy is intentionally uncached: a stale view would
	// invite claims the engine then has to reject.
	e.GET("/v1/shows/:id/seats", b.OccupiedSeats)
}

// RegisterBooking registers the authenticated booking endpoints under
// /v1 and the owner-only show creation.  Every route in the group
// passes JWT validation and role screening before its handler runs.
func RegisterBooking(e *echo.Echo, s *handler.ShowHandler, b *handler.BookingHandler, jwtSecret string) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("OWNER", "CUSTOMER"))
	auth.POST("/bookings", b.CreateBooking)
	auth.GET("/my-bookings", b.MyBookings)

	owner := e.Group("/v1")
	owner.Use(middleware.JWTAuth(jwtSecret))
	owner.Use(middleware.RequireRole("OWNER"))
	owner.POST("/shows", s.CreateShow)
}

// RegisterWebhook registers the payment processor callback.  The route
// carries no JWT; authenticity is established by the signature check
// inside the handler, so it must stay outside every auth group.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/payments/webhook", w.HandleNotification)
}

package fakeapi

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the API under /api.  Browsing and auth are public;
// bookings and orders require a Bearer token.
func RegisterRoutes(e *echo.Echo, s *Server) {
	e.GET("/healthz", s.Health)

	auth := jwtAuth(s.opts.JWTSecret)
	g := e.Group("/api")
	g.GET("/events", s.ListEvents)
	g.GET("/event-dates/:id", s.GetEventDate)
	g.GET("/event-dates/:id/availability", s.GetAvailability)
	g.POST("/login", s.Login)
	g.POST("/signup", s.SignUp)

	g.POST("/bookings", s.CreateBooking, auth, TokenBucket(s.opts.RateLimit, s.opts.Redis))
	g.GET("/orders", s.ListOrders, auth)
	g.GET("/orders/:id", s.GetOrder, auth)
}

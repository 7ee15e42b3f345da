package router // package router wires handlers and middleware onto echo

import (
	"github.com/labstack/echo/v4"

	"github.com/rodetes-party/rodetes/internal/handler"
	"github.com/rodetes-party/rodetes/internal/middleware"
	"github.com/rodetes-party/rodetes/internal/model"
)

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/v1/healthz", handler.Health(db))
}

// RegisterAuth registers token endpoints under /v1/auth and the protected
// /v1/me.  Logout works with either a refresh token in the body or a
// bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	)
}

// RegisterPublic registers the anonymous shop.  cache is applied to the
// catalog reads only; availability and purchases always hit the ledger.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")

	g.GET("/events", p.ListEvents)
	g.GET("/events/:id", p.GetEvent)
	g.GET("/events/:id/availability", p.Availability)
	g.POST("/events/:id/tickets", p.PurchaseTicket)
	g.GET("/tickets/:id/qr.png", p.TicketQR)

	g.GET("/drags", p.ListDrags, cache)
	g.GET("/drags/:id", p.GetDrag, cache)
	g.GET("/merch", p.ListMerch, cache)
	g.POST("/merch/purchases", p.PurchaseMerch)
	g.GET("/merch-sales/:id/qr.png", p.SaleQR)
}

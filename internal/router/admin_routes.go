package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rodetes-party/rodetes/internal/handler"
	"github.com/rodetes-party/rodetes/internal/middleware"
	"github.com/rodetes-party/rodetes/internal/model"
)

// RegisterAdmin registers the ADMIN-only back office under /v1/admin.
func RegisterAdmin(e *echo.Echo, ad *handler.AdminHandler, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Staff accounts ----
	g.POST("/users", a.CreateUser)

	// ---- Events ----
	g.GET("/events", ad.ListEvents)
	g.POST("/events", ad.CreateEvent)
	g.PUT("/events", ad.SyncEvents)
	g.PUT("/events/:id", ad.UpdateEvent)
	g.POST("/events/:id/archive", ad.ArchiveEvent)
	g.DELETE("/events/:id", ad.DeleteEvent)

	// ---- Tickets ----
	g.GET("/events/:id/tickets", ad.ListTickets)
	g.DELETE("/tickets/:id", ad.DeleteTicket)
	g.POST("/resync", ad.Resync)

	// ---- Drags ----
	g.POST("/drags", ad.CreateDrag)
	g.PUT("/drags", ad.SyncDrags)
	g.PUT("/drags/:id", ad.UpdateDrag)
	g.DELETE("/drags/:id", ad.DeleteDrag)

	// ---- Merch ----
	g.GET("/merch-items", ad.ListItems)
	g.POST("/merch-items", ad.CreateItem)
	g.PUT("/merch-items/:id", ad.UpdateItem)
	g.DELETE("/merch-items/:id", ad.DeleteItem)
	g.GET("/merch-sales", ad.ListSales)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rodetes-party/rodetes/internal/handler"
	"github.com/rodetes-party/rodetes/internal/middleware"
	"github.com/rodetes-party/rodetes/internal/model"
)

// RegisterScanner registers the door scanner.  Admins and door staff may
// use it.
func RegisterScanner(e *echo.Echo, s *handler.ScanHandler, jwtSecret string) {
	g := e.Group(
		"/v1/scan",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	)
	g.POST("", s.Scan)
	g.POST("/:session/confirm", s.Confirm)
	g.POST("/:session/cancel", s.Cancel)
}

// Package router registers the HTTP API on an echo instance.  Everything
// lives under /api; register and login are the only unauthenticated
// writes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/handler"
	"github.com/iliyamo/elibrary/internal/middleware"
)

// APIPrefix is the mount point of every JSON route.
const APIPrefix = "/api"

// RegisterRoutes registers routes that do not require authentication and
// are not part of a resource: the health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET(APIPrefix+"/health", h.Health)
}

// RegisterAuth registers /api/auth.  Logout and me run behind the gate.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens middleware.TokenVerifier) {
	g := e.Group(APIPrefix + "/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	gate := middleware.JWTAuth(tokens)
	g.POST("/logout", a.Logout, gate)
	g.GET("/me", a.Me, gate)
}

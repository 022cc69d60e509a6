package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/handler"
	"github.com/iliyamo/elibrary/internal/middleware"
)

// RegisterUsers registers /api/users.  Every route acts on the caller's
// own account.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, tokens middleware.TokenVerifier) {
	g := e.Group(APIPrefix+"/users", middleware.JWTAuth(tokens))
	g.GET("/profile", h.Profile)
	g.PUT("/profile", h.UpdateProfile)
	g.GET("/favorites", h.Favorites)
}

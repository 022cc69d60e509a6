package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/handler"
	"github.com/iliyamo/elibrary/internal/middleware"
	"github.com/iliyamo/elibrary/internal/model"
)

// RegisterBooks registers /api/books.  Reads are public and go through
// the response cache; writes need an admin token; favorites need any
// valid token.
func RegisterBooks(e *echo.Echo, h *handler.BookHandler, tokens middleware.TokenVerifier, cache *middleware.ResponseCache) {
	g := e.Group(APIPrefix + "/books")
	gate := middleware.JWTAuth(tokens)
	admin := middleware.RequireRole(model.RoleAdmin)

	cached := cache.Middleware()
	g.GET("", h.List, cached)
	g.GET("/search", h.Search, cached)
	g.GET("/:id", h.Get, cached)

	g.POST("", h.Create, gate, admin)
	g.PUT("/:id", h.Update, gate, admin)
	g.DELETE("/:id", h.Delete, gate, admin)

	g.GET("/:id/favorites", h.Favorites, gate)
	g.POST("/:id/favorite", h.AddFavorite, gate)
	g.DELETE("/:id/favorite", h.RemoveFavorite, gate)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/service"
)

// Context keys set by JWTAuth.
const (
	identityKey = "identity"
	tokenKey    = "token"
)

// TokenVerifier turns a bearer token into the identity it carries.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (model.Identity, error)
}

// JWTAuth requires `Authorization: Bearer <token>`.  On success the
// identity and the raw token are stored in the context for handlers; it
// never writes to any store.
func JWTAuth(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, ok := strings.Cut(auth, " ")
			raw = strings.TrimSpace(raw)
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
			}

			id, err := tokens.Verify(c.Request().Context(), raw)
			switch {
			case errors.Is(err, service.ErrTokenInvalid):
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			case err != nil:
				return err
			}

			c.Set(identityKey, id)
			c.Set(tokenKey, raw)
			return next(c)
		}
	}
}

// RequireRole aborts with 403 unless the authenticated identity holds one
// of roles.  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
			}
			if !allowed[id.Role] {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// TokenFrom returns the raw bearer token stored by JWTAuth.
func TokenFrom(c echo.Context) string {
	s, _ := c.Get(tokenKey).(string)
	return s
}

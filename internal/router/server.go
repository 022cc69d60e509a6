package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/elibrary/internal/handler"
	"github.com/iliyamo/elibrary/internal/middleware"
)

// Deps is everything New needs to assemble the HTTP server.
type Deps struct {
	Logger         *slog.Logger
	HideInternal   bool          // replace 5xx messages with a generic one
	CORSOrigins    []string      // allowed browser origins
	MaxUploadBytes int64         // request bodies may exceed this by 1 MiB of form overhead
	RequestTimeout time.Duration // per-request store budget
	UploadDir      string        // served under /uploads; empty disables
	Metrics        http.Handler  // served under /metrics; nil disables

	Tokens middleware.TokenVerifier
	Cache  *middleware.ResponseCache
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Books  *handler.BookHandler
	Users  *handler.UserHandler
}

// New builds the echo instance with the global middleware chain and all
// routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger, d.HideInternal)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			d.Logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))
	if len(d.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}
	if d.MaxUploadBytes > 0 {
		e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", (d.MaxUploadBytes+1<<20)/1024)))
	}
	e.Use(middleware.RequestTimeout(d.RequestTimeout))

	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	RegisterRoutes(e, d.Health)
	RegisterAuth(e, d.Auth, d.Tokens)
	RegisterBooks(e, d.Books, d.Tokens, d.Cache)
	RegisterUsers(e, d.Users, d.Tokens)
	return e
}

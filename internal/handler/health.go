package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves /api/health for load balancers and monitoring.
type HealthHandler struct {
	DB      Pinger
	Env     string
	Started time.Time
}

type healthResp struct {
	Uptime      float64 `json:"uptime"`
	Message     string  `json:"message"`
	Timestamp   string  `json:"timestamp"`
	Environment string  `json:"environment"`
	Database    string  `json:"database"`
}

// Health returns 200 when the database answers a ping within two seconds
// and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	resp := healthResp{
		Uptime:      time.Since(h.Started).Seconds(),
		Message:     "OK",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: h.Env,
		Database:    "connected",
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		resp.Message = "database unreachable"
		resp.Database = "disconnected"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

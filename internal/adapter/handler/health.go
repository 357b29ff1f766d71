package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers liveness checks from the container runtime and the
// healthcheck subcommand.
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

// Handle reports the hub as alive. Liveness deliberately ignores the
// provider and the profile store; a degraded dependency must not get the
// process restarted.
func (h *HealthHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "identity-hub",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

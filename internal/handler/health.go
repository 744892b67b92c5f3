package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ott-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, now: time.Now}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health reports that the proxy endpoints are serving.
func (h *HealthHandler) Health(c echo.Context) error {
	setCORS(c.Response().Header())
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Proxy service is running",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": string(h.version),
		"env":     h.cfg.Env,
		"api_url": h.cfg.Proxy.APIURL,
	})
}

package handler

import (
	"github.com/labstack/echo/v4"

	"ott-proxy/internal/middleware"
)

// corsRoutes answer CORS preflight requests.
var corsRoutes = []string{
	"/proxy/stream",
	"/proxy/m3u8",
	"/proxy/classify",
	"/proxy/health",
	"/export/appointments",
	"/export/referrals",
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, stream *StreamHandler, playlist *PlaylistHandler, exports *ExportHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/health", health.Health)
	e.GET("/proxy/status", health.Status)

	e.GET("/proxy/stream", stream.Handle)
	e.GET("/proxy/m3u8", playlist.Handle, middleware.Gzip())
	e.GET("/proxy/classify", Classify)

	e.POST("/export/appointments", exports.Appointments)
	e.POST("/export/referrals", exports.Referrals)

	for _, path := range corsRoutes {
		e.OPTIONS(path, Preflight)
	}
}

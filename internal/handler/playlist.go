package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"ott-proxy/internal/config"
	"ott-proxy/internal/service"
)

const (
	playlistContentType    = "application/vnd.apple.mpegurl"
	playlistFailedMessage  = "Failed to proxy playlist"
	playlistRedactedDetail = "Playlist unavailable"
)

// PlaylistHandler serves HLS playlists rewritten to route through the stream proxy.
type PlaylistHandler struct {
	service *service.PlaylistService
	respond responder
}

// NewPlaylistHandler creates a PlaylistHandler.
func NewPlaylistHandler(svc *service.PlaylistService, cfg *config.Config, logger *slog.Logger) *PlaylistHandler {
	return &PlaylistHandler{
		service: svc,
		respond: newResponder(cfg, logger.With("component", "playlist_handler")),
	}
}

// Handle serves GET /proxy/m3u8?url=.
func (h *PlaylistHandler) Handle(c echo.Context) error {
	pl, err := h.service.Rewrite(c.Request().Context(), c.QueryParam("url"))
	if err != nil {
		return h.respond.mapError(c, err, playlistFailedMessage, playlistRedactedDetail)
	}

	hdr := c.Response().Header()
	setCORS(hdr)
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("X-Playlist-Type", string(pl.Kind))

	return c.Blob(http.StatusOK, playlistContentType, []byte(pl.Body))
}

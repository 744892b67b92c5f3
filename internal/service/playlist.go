package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"ott-proxy/internal/client"
	"ott-proxy/internal/config"
	"ott-proxy/internal/metrics"
	"ott-proxy/internal/model"
	"ott-proxy/internal/playlist"
)

// ErrPlaylistTooLarge is returned when a playlist body exceeds upstream.max_playlist_bytes.
var ErrPlaylistTooLarge = errors.New("playlist exceeds size limit")

// PlaylistService fetches HLS playlists and rewrites them to route through the stream proxy.
type PlaylistService struct {
	client    *client.UpstreamClient
	rewriter  *playlist.Rewriter
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewPlaylistService creates a PlaylistService. The API base used in rewritten
// links is fixed here from proxy.api_url.
// The metrics parameter is optional; pass nil to disable rewrite counting.
func NewPlaylistService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *PlaylistService {
	return &PlaylistService{
		client:    c,
		rewriter:  playlist.NewRewriter(cfg.Proxy.APIURL),
		userAgent: cfg.Upstream.UserAgent,
		maxBytes:  cfg.Upstream.MaxPlaylistBytes,
		logger:    logger.With("component", "playlist_service"),
		metrics:   m,
	}
}

// Rewrite fetches the playlist at target and returns it with every URI proxied.
func (s *PlaylistService) Rewrite(ctx context.Context, target string) (*model.Playlist, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	// Unlike the stream path, a playlist request needs a Referer.
	referer, err := client.Referer(target)
	if err != nil {
		return nil, fmt.Errorf("playlist: %w", err)
	}

	header := make(http.Header)
	header.Set("User-Agent", s.userAgent)
	header.Set("Accept", "*/*")
	header.Set("Referer", referer)

	resp, err := s.client.Fetch(ctx, target, header)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	body, err := readLimited(resp.Body, s.maxBytes)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	text := s.rewriter.Rewrite(string(body), target)
	kind := playlist.DetectKind(text)

	if s.metrics != nil {
		s.metrics.PlaylistRewrites.WithLabelValues(string(kind)).Inc()
	}
	s.logger.Debug("playlist rewritten",
		"kind", kind,
		"bytes_in", len(body),
		"bytes_out", len(text),
	)

	return &model.Playlist{Body: text, Kind: kind}, nil
}

// readLimited reads r fully, failing once more than limit bytes arrive.
// A limit of zero or less means no limit.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, ErrPlaylistTooLarge
	}
	return body, nil
}

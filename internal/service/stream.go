package service

import (
	"log/slog"
	"net/http"
	"strconv"

	"ott-proxy/internal/client"
	"ott-proxy/internal/config"
	"ott-proxy/internal/model"
)

// defaultContentType is assumed when the media host does not send one.
const defaultContentType = "video/mp4"

// StreamService opens upstream media resources for relaying.
type StreamService struct {
	client    *client.UpstreamClient
	userAgent string
	logger    *slog.Logger
}

// NewStreamService creates a StreamService.
func NewStreamService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) *StreamService {
	return &StreamService{
		client:    c,
		userAgent: cfg.Upstream.UserAgent,
		logger:    logger.With("component", "stream_service"),
	}
}

// Open requests the media resource named by sr and returns the response with
// client-facing headers. The caller is responsible for closing the body.
//
// Upstream statuses below 500 are returned as-is so the client sees real 4xx
// bodies; 5xx statuses become an *UpstreamError carrying the status.
func (s *StreamService) Open(sr *model.StreamRequest) (*model.UpstreamResponse, error) {
	if err := validateTarget(sr.URL); err != nil {
		return nil, err
	}

	resp, err := s.client.Stream(sr.Ctx, sr.URL, s.requestHeaders(sr))
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		_ = resp.Body.Close()
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	s.logger.Debug("stream opened",
		"status", resp.StatusCode,
		"content_length", resp.ContentLength,
		"ranged", sr.Range != "",
	)

	resp.Header = responseHeaders(resp)
	return resp, nil
}

// requestHeaders builds the upstream header set. Accept-Encoding is pinned to
// identity so byte ranges and Content-Length refer to the stored bytes.
func (s *StreamService) requestHeaders(sr *model.StreamRequest) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", s.userAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Encoding", "identity")
	if sr.Range != "" {
		h.Set("Range", sr.Range)
	}
	// Best-effort: an unparseable URL simply goes without a Referer.
	if referer, err := client.Referer(sr.URL); err == nil {
		h.Set("Referer", referer)
	}
	return h
}

// responseHeaders selects the headers relayed to the client.
func responseHeaders(resp *model.UpstreamResponse) http.Header {
	dst := make(http.Header)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	dst.Set("Content-Type", contentType)

	if resp.ContentLength >= 0 {
		dst.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		dst.Set("Content-Range", cr)
		dst.Set("Accept-Ranges", "bytes")
	} else if ar := resp.Header.Get("Accept-Ranges"); ar != "" {
		dst.Set("Accept-Ranges", ar)
	}
	return dst
}

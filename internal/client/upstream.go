// Package client provides the upstream HTTP client for media and playlist hosts.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/ratelimit"

	"ott-proxy/internal/config"
	"ott-proxy/internal/metrics"
	"ott-proxy/internal/model"
)

// UpstreamClient sends requests to remote media and playlist hosts.
//
// Two underlying clients are kept: the stream client bounds only the time to
// response headers so long media bodies are never cut off, while the playlist
// client bounds the whole exchange because playlists are read eagerly.
type UpstreamClient struct {
	streamClient   *http.Client
	playlistClient *http.Client
	logger         *slog.Logger
	metrics        *metrics.Metrics

	hostRPS  int
	limiters *xsync.MapOf[string, ratelimit.Limiter]
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	streamTimeout := time.Duration(cfg.Upstream.StreamTimeoutSeconds) * time.Second
	playlistTimeout := time.Duration(cfg.Upstream.PlaylistTimeoutSeconds) * time.Second

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost:   cfg.Upstream.IdleConnections,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: streamTimeout,
		DialContext: (&net.Dialer{
			Timeout:   streamTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	redirects := redirectPolicy(cfg.Upstream.MaxRedirects)

	c := &UpstreamClient{
		streamClient: &http.Client{
			Transport:     transport,
			CheckRedirect: redirects,
		},
		playlistClient: &http.Client{
			Transport:     transport,
			CheckRedirect: redirects,
			Timeout:       playlistTimeout,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
		hostRPS: cfg.Upstream.HostRPS,
	}
	if c.hostRPS > 0 {
		c.limiters = xsync.NewMapOf[string, ratelimit.Limiter]()
	}
	return c
}

// redirectPolicy allows at most max redirect hops. via holds every request
// made so far, so the hop being checked is number len(via).
func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) > max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}

// Stream opens a media resource and returns its body as a stream.
// The caller is responsible for closing the returned body.
// The provided context controls the lifetime of the upstream request:
// when the context is canceled (e.g. client disconnects), the upstream
// read is canceled too.
func (c *UpstreamClient) Stream(ctx context.Context, target string, header http.Header) (*model.UpstreamResponse, error) {
	return c.do(ctx, metrics.KindStream, c.streamClient, target, header)
}

// Fetch requests a playlist. The whole exchange, body included, is bounded
// by the playlist timeout, so the body must be read before it expires.
func (c *UpstreamClient) Fetch(ctx context.Context, target string, header http.Header) (*model.UpstreamResponse, error) {
	return c.do(ctx, metrics.KindPlaylist, c.playlistClient, target, header)
}

// CloseIdleConnections closes pooled keep-alive connections to upstream hosts.
func (c *UpstreamClient) CloseIdleConnections() {
	c.streamClient.CloseIdleConnections()
	c.playlistClient.CloseIdleConnections()
}

func (c *UpstreamClient) do(ctx context.Context, kind string, hc *http.Client, target string, header http.Header) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if header != nil {
		req.Header = header
	}

	if err := c.wait(ctx, req.URL.Host); err != nil {
		return nil, err
	}

	c.logger.Debug("upstream request",
		"kind", kind,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := hc.Do(req) //nolint:bodyclose // body ownership transfers to caller via UpstreamResponse
	duration := time.Since(start).Seconds()

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(kind).Observe(duration)
	}
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(kind, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// wait blocks until the per-host outbound limiter admits another request.
// Take cannot be interrupted, so a context that ended during the wait is
// reported afterwards and no request is sent.
func (c *UpstreamClient) wait(ctx context.Context, host string) error {
	if c.limiters == nil {
		return nil
	}
	limiter, _ := c.limiters.LoadOrCompute(host, func() ratelimit.Limiter {
		return ratelimit.New(c.hostRPS)
	})
	limiter.Take()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for %s limiter: %w", host, err)
	}
	return nil
}

// Referer returns the origin of target with a trailing slash, as browsers
// send it for cross-origin media requests.
func Referer(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse referer source: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("parse referer source: %q is not an absolute URL", target)
	}
	return u.Scheme + "://" + u.Host + "/", nil
}

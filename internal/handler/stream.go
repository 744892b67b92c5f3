package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"ott-proxy/internal/config"
	"ott-proxy/internal/metrics"
	"ott-proxy/internal/model"
	"ott-proxy/internal/service"
)

const (
	streamFailedMessage  = "Failed to proxy stream"
	streamRedactedDetail = "Stream unavailable"
	chunkSize            = 32 * 1024
)

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, chunkSize)
		return &b
	},
}

// StreamHandler relays media bytes from an upstream host to the client.
type StreamHandler struct {
	service *service.StreamService
	respond responder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStreamHandler creates a StreamHandler.
// The metrics parameter is optional; pass nil to disable byte counting.
func NewStreamHandler(svc *service.StreamService, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *StreamHandler {
	logger = logger.With("component", "stream_handler")
	return &StreamHandler{
		service: svc,
		respond: newResponder(cfg, logger),
		logger:  logger,
		metrics: m,
	}
}

// Handle serves GET /proxy/stream?url=.
func (h *StreamHandler) Handle(c echo.Context) error {
	req := c.Request()

	sr := &model.StreamRequest{
		Ctx:   req.Context(),
		URL:   c.QueryParam("url"),
		Range: req.Header.Get("Range"),
	}

	resp, err := h.service.Open(sr)
	if err != nil {
		return h.respond.mapError(c, err, streamFailedMessage, streamRedactedDetail)
	}
	defer func() { _ = resp.Body.Close() }()

	return h.pipe(c, resp)
}

// pipe copies resp.Body to the client one chunk at a time. Headers are
// committed on the first successful read so an early upstream failure can
// still be answered with a JSON error. Every exit leaves state at StateClosed.
func (h *StreamHandler) pipe(c echo.Context, resp *model.UpstreamResponse) error {
	bufp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bufp)
	buf := *bufp

	w := c.Response()
	ctx := c.Request().Context()
	state := StateNotStarted
	reason := "eof"

	defer func() {
		h.logger.Debug("stream closed",
			"state", state.String(),
			"reason", reason,
			"bytes_out", w.Size,
		)
	}()

	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if state == StateNotStarted {
				h.writeHeaders(w, resp)
				state = StateHeadersSent
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				h.logger.Debug("client write failed", "err", werr, "state", state.String())
				state, reason = StateClosed, "client_write"
				return nil
			}
			w.Flush()
			state = StateStreaming
			if h.metrics != nil {
				h.metrics.StreamBytes.Add(float64(n))
			}
		}

		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			if state == StateNotStarted {
				h.writeHeaders(w, resp)
			}
			state = StateClosed
			return nil
		}
		if ctx.Err() != nil {
			// Client went away; the context canceled the upstream read.
			h.logger.Debug("client disconnected", "state", state.String())
			state, reason = StateClosed, "client_gone"
			return nil
		}

		perr := &StreamPipeError{State: state, Err: rerr}
		state, reason = StateClosed, "upstream_read"
		if perr.State == StateNotStarted {
			return h.respond.mapError(c, perr, streamFailedMessage, streamRedactedDetail)
		}

		h.logger.Error("upstream read failed mid-stream",
			"err", sanitizeError(perr),
			"bytes_out", w.Size,
		)
		panic(http.ErrAbortHandler)
	}
}

func (h *StreamHandler) writeHeaders(w *echo.Response, resp *model.UpstreamResponse) {
	dst := w.Header()
	setCORS(dst)
	for key, vals := range resp.Header {
		for _, v := range vals {
			dst.Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
}

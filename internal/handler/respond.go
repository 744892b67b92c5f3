package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/grafana/regexp"
	"github.com/labstack/echo/v4"

	"ott-proxy/internal/config"
	"ott-proxy/internal/export"
	"ott-proxy/internal/service"
)

// credentialPattern matches credential-like query values in URLs embedded in error messages.
var credentialPattern = regexp.MustCompile(`(?i)([?&](?:token|key|api_?key|access_token|auth|password|passwd|secret|signature|sig)=)[^&\s"']+`)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// responder maps service errors to JSON responses.
type responder struct {
	development bool
	logger      *slog.Logger
}

func newResponder(cfg *config.Config, logger *slog.Logger) responder {
	return responder{development: cfg.IsDevelopment(), logger: logger}
}

// mapError answers err with its status code. Outside development the error
// detail is replaced by redacted.
func (r responder) mapError(c echo.Context, err error, message, redacted string) error {
	status := statusFor(err)

	if status == http.StatusBadRequest {
		return c.JSON(status, errorBody{Success: false, Message: err.Error()})
	}

	r.logger.Error(message,
		"err", sanitizeError(err),
		"status", status,
		"path", c.Request().URL.Path,
	)

	detail := redacted
	if r.development {
		detail = sanitizeError(err)
	}
	return c.JSON(status, errorBody{Success: false, Message: message, Error: detail})
}

func statusFor(err error) int {
	if service.IsValidation(err) || errors.Is(err, export.ErrUnsupportedFormat) {
		return http.StatusBadRequest
	}
	var ue *service.UpstreamError
	if errors.As(err, &ue) && ue.StatusCode != 0 {
		return ue.StatusCode
	}
	return http.StatusInternalServerError
}

// sanitizeError redacts credentials from error messages that may contain upstream URLs.
func sanitizeError(err error) string {
	return credentialPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}

// setCORS allows browser players on any origin to read media responses.
func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Range, Content-Type")
	h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Content-Type")
}

// Preflight answers CORS preflight requests.
func Preflight(c echo.Context) error {
	setCORS(c.Response().Header())
	return c.NoContent(http.StatusNoContent)
}

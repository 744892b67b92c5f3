package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"ott-proxy/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware that records Prometheus metrics
// for each inbound request. Requests to skipPath (the scrape endpoint) are not
// counted.
//
// Recording happens in a defer so aborted streams, which unwind by panic,
// are still counted with the status that was already sent.
func MetricsMiddleware(m *metrics.Metrics, skipPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			if skipPath != "" && c.Request().URL.Path == skipPath {
				return next(c)
			}

			m.RequestsInFlight.Inc()
			start := time.Now()

			defer func() {
				m.RequestsInFlight.Dec()

				status := strconv.Itoa(responseStatus(c, err))
				method := metrics.NormalizeMethod(c.Request().Method)
				path := metrics.NormalizePath(c.Request().URL.Path)

				m.RequestsTotal.WithLabelValues(method, status, path).Inc()
				m.RequestDuration.WithLabelValues(method, status, path).Observe(time.Since(start).Seconds())
			}()

			return next(c)
		}
	}
}

// responseStatus resolves the status the client sees. An *echo.HTTPError
// returned by a handler is written later by Echo's error handler.
func responseStatus(c echo.Context, err error) int {
	res := c.Response()
	if err != nil && !res.Committed {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he.Code
		}
	}
	return res.Status
}

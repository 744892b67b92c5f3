package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"ott-proxy/internal/client"
	"ott-proxy/internal/config"
	"ott-proxy/internal/export"
	"ott-proxy/internal/service"
)

const testAPIURL = "http://localhost:8000"

func testConfig(t *testing.T, env string) *config.Config {
	t.Helper()
	return &config.Config{
		Env:   env,
		Proxy: config.ProxyConfig{APIURL: testAPIURL},
		Upstream: config.UpstreamConfig{
			UserAgent:              "ott-proxy-test",
			StreamTimeoutSeconds:   10,
			PlaylistTimeoutSeconds: 5,
			MaxRedirects:           5,
			IdleConnections:        10,
			MaxPlaylistBytes:       1 << 20,
		},
		Export: config.ExportConfig{Dir: t.TempDir()},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testHandlers struct {
	upstream *client.UpstreamClient
	stream   *StreamHandler
	playlist *PlaylistHandler
	exports  *ExportHandler
	health   *HealthHandler
}

func newTestHandlers(cfg *config.Config) *testHandlers {
	return newTestHandlersWithLogger(cfg, testLogger())
}

func newTestHandlersWithLogger(cfg *config.Config, logger *slog.Logger) *testHandlers {
	uc := client.NewUpstreamClient(cfg, logger, nil)
	return &testHandlers{
		upstream: uc,
		stream:   NewStreamHandler(service.NewStreamService(uc, cfg, logger), cfg, logger, nil),
		playlist: NewPlaylistHandler(service.NewPlaylistService(uc, cfg, logger, nil), cfg, logger),
		exports:  NewExportHandler(export.NewService(cfg, logger, nil), cfg, logger),
		health:   NewHealthHandler(cfg, "test"),
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return body
}

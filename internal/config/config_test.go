package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

// writeConfig writes data to a config.toml in a fresh temp dir and returns its path.
func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
env = "development"

[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[proxy]
api_url = "https://media.example.com/"

[upstream]
user_agent = "test-agent"
stream_timeout_seconds = 20
playlist_timeout_seconds = 10
max_redirects = 3
host_rps = 4

[export]
dir = "/tmp/exports"

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Proxy.APIURL != "https://media.example.com" {
		t.Errorf("Proxy.APIURL = %q, want trailing slash trimmed", cfg.Proxy.APIURL)
	}
	if cfg.Upstream.UserAgent != "test-agent" {
		t.Errorf("Upstream.UserAgent = %q, want %q", cfg.Upstream.UserAgent, "test-agent")
	}
	if cfg.Upstream.StreamTimeoutSeconds != 20 {
		t.Errorf("Upstream.StreamTimeoutSeconds = %d, want %d", cfg.Upstream.StreamTimeoutSeconds, 20)
	}
	if cfg.Upstream.PlaylistTimeoutSeconds != 10 {
		t.Errorf("Upstream.PlaylistTimeoutSeconds = %d, want %d", cfg.Upstream.PlaylistTimeoutSeconds, 10)
	}
	if cfg.Upstream.MaxRedirects != 3 {
		t.Errorf("Upstream.MaxRedirects = %d, want %d", cfg.Upstream.MaxRedirects, 3)
	}
	if cfg.Upstream.HostRPS != 4 {
		t.Errorf("Upstream.HostRPS = %d, want %d", cfg.Upstream.HostRPS, 4)
	}
	if cfg.Export.Dir != "/tmp/exports" {
		t.Errorf("Export.Dir = %q, want %q", cfg.Export.Dir, "/tmp/exports")
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "# empty\n")

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Env", cfg.Env, "production"},
		{"Server.Host", cfg.Server.Host, "0.0.0.0"},
		{"Server.Port", cfg.Server.Port, 8000},
		{"Server.BodyMaxBytes", cfg.Server.BodyMaxBytes, int64(10 * 1024 * 1024)},
		{"Proxy.APIURL", cfg.Proxy.APIURL, "http://localhost:8000"},
		{"Upstream.UserAgent", cfg.Upstream.UserAgent, DefaultUserAgent},
		{"Upstream.StreamTimeoutSeconds", cfg.Upstream.StreamTimeoutSeconds, 30},
		{"Upstream.PlaylistTimeoutSeconds", cfg.Upstream.PlaylistTimeoutSeconds, 15},
		{"Upstream.MaxRedirects", cfg.Upstream.MaxRedirects, 5},
		{"Upstream.IdleConnections", cfg.Upstream.IdleConnections, 100},
		{"Upstream.MaxPlaylistBytes", cfg.Upstream.MaxPlaylistBytes, int64(5 * 1024 * 1024)},
		{"Upstream.HostRPS", cfg.Upstream.HostRPS, 0},
		{"Export.Dir", cfg.Export.Dir, "exports"},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "json"},
		{"Metrics.Path", cfg.Metrics.Path, "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false by default")
	}
}

func TestLoad_NoFile(t *testing.T) {
	// With no explicit path and nothing at the search paths, defaults apply.
	orig := configSearchPaths
	configSearchPaths = []string{filepath.Join(t.TempDir(), "missing.toml")}
	defer func() { configSearchPaths = orig }()

	cfg, err := Load(&CLI{APIURL: "http://10.0.0.2:8000"})
	if err != nil {
		t.Fatalf("Load() error = %v; running without a config file should be allowed", err)
	}
	if cfg.Proxy.APIURL != "http://10.0.0.2:8000" {
		t.Errorf("Proxy.APIURL = %q, want CLI value", cfg.Proxy.APIURL)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(cliWithPath("/nonexistent/path/config.toml"))
	if err == nil {
		t.Fatal("Load() expected error for missing explicit file, got nil")
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, `
env = "production"

[server]
host = "0.0.0.0"
port = 8000

[proxy]
api_url = "http://localhost:8000"

[log]
level = "info"
`)

	cli := &CLI{
		Config:    path,
		Host:      "127.0.0.1",
		Port:      9999,
		APIURL:    "https://cdn.example.org",
		Env:       "development",
		ExportDir: "/var/exports",
		LogLevel:  "debug",
	}

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want CLI override %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want CLI override %d", cfg.Server.Port, 9999)
	}
	if cfg.Proxy.APIURL != "https://cdn.example.org" {
		t.Errorf("Proxy.APIURL = %q, want CLI override", cfg.Proxy.APIURL)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want CLI override %q", cfg.Env, "development")
	}
	if cfg.Export.Dir != "/var/exports" {
		t.Errorf("Export.Dir = %q, want CLI override", cfg.Export.Dir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want CLI override %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{"api_url ftp scheme", "[proxy]\napi_url = \"ftp://example.com\"\n", "proxy.api_url"},
		{"api_url relative", "[proxy]\napi_url = \"/api\"\n", "proxy.api_url"},
		{"negative port", "[server]\nport = -1\n", "server.port"},
		{"negative body max", "[server]\nbody_max_bytes = -1\n", "server.body_max_bytes"},
		{"negative stream timeout", "[upstream]\nstream_timeout_seconds = -5\n", "upstream.stream_timeout_seconds"},
		{"negative playlist timeout", "[upstream]\nplaylist_timeout_seconds = -5\n", "upstream.playlist_timeout_seconds"},
		{"negative redirects", "[upstream]\nmax_redirects = -1\n", "upstream.max_redirects"},
		{"negative host rps", "[upstream]\nhost_rps = -1\n", "upstream.host_rps"},
		{"unknown env", "env = \"staging\"\n", "env"},
		{"invalid log level", "[log]\nlevel = \"verbose\"\n", "log.level"},
		{"invalid log format", "[log]\nformat = \"xml\"\n", "log.format"},
		{"rate limit zero rps", "[server.rate_limit]\nenabled = true\nrequests_per_second = 0\n", "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.data)
			_, err := Load(cliWithPath(path))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_RateLimitConfig_Enabled(t *testing.T) {
	path := writeConfig(t, `
[server.rate_limit]
enabled = true
requests_per_second = 25.5
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Server.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = false, want true")
	}
	if cfg.Server.RateLimit.RequestsPerSecond != 25.5 {
		t.Errorf("RateLimit.RequestsPerSecond = %v, want 25.5", cfg.Server.RateLimit.RequestsPerSecond)
	}
}

func TestWarnPermissions_Loose(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("# test"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{filePath: path}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg.WarnPermissions(logger)

	if !strings.Contains(buf.String(), "readable by group/others") {
		t.Errorf("expected permission warning, got: %q", buf.String())
	}
}

func TestWarnPermissions_Strict(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("# test"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{filePath: path}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg.WarnPermissions(logger)

	if buf.Len() != 0 {
		t.Errorf("expected no warning for 0600 file, got: %q", buf.String())
	}
}

func TestWarnPermissions_NoFile(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	(&Config{}).WarnPermissions(logger)

	if buf.Len() != 0 {
		t.Errorf("expected no output without a config file, got: %q", buf.String())
	}
}

func TestFindConfigInPaths_Priority(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	path1 := filepath.Join(dir1, "config.toml")
	path2 := filepath.Join(dir2, "config.toml")
	for _, p := range []string{path1, path2} {
		if err := os.WriteFile(p, []byte("[proxy]\napi_url = \"http://localhost:8000\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := findConfigInPaths([]string{"/nonexistent/a.toml", path1, path2}); got != path1 {
		t.Errorf("findConfigInPaths() = %q, want first match %q", got, path1)
	}
	if got := findConfigInPaths([]string{"/nonexistent/a.toml"}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}

func TestLoad_MetricsPathConflictsWithRoute(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"proxy exact", "/proxy"},
		{"proxy sub", "/proxy/metrics"},
		{"export sub", "/export/metrics"},
		{"healthz", "/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := writeConfig(t, `
[metrics]
enabled = true
path = "`+tt.path+`"
`)

			_, err := Load(cliWithPath(cfgPath))
			if err == nil {
				t.Fatalf("Load() expected error for metrics.path=%q conflicting with route, got nil", tt.path)
			}
			if !strings.Contains(err.Error(), "conflicts") {
				t.Errorf("error = %q, want mention of conflict", err)
			}
		})
	}
}

func TestLoad_MetricsPathNoLeadingSlash(t *testing.T) {
	path := writeConfig(t, `
[metrics]
enabled = true
path = "metrics"
`)

	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for metrics.path without leading slash, got nil")
	}
}

func TestLoad_MetricsDisabledSkipsPathValidation(t *testing.T) {
	path := writeConfig(t, `
[metrics]
enabled = false
path = "bad-no-slash"
`)

	if _, err := Load(cliWithPath(path)); err != nil {
		t.Fatalf("Load() error = %v; disabled metrics should skip path validation", err)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	sc := &ServerConfig{Host: "127.0.0.1", Port: 3000}
	want := "127.0.0.1:3000"
	if got := sc.Addr(); got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}

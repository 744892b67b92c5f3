// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/ott-proxy/config.toml",
	"configs/config.toml",
}

// EnvDevelopment is the environment name that disables error message redaction.
const EnvDevelopment = "development"

// DefaultUserAgent is the browser-like User-Agent sent to media hosts.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config    string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host      string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port      int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	APIURL    string `kong:"name='api-url',help='Public base URL used in rewritten playlist links (overrides config).',env='API_URL'"`
	Env       string `kong:"help='Runtime environment: development|production (overrides config).',env='APP_ENV,NODE_ENV'"`
	ExportDir string `kong:"help='Directory for exported workbooks (overrides config).',env='EXPORT_DIR'"`
	LogLevel  string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Env      string         `toml:"env"`
	Server   ServerConfig   `toml:"server"`
	Proxy    ProxyConfig    `toml:"proxy"`
	Upstream UpstreamConfig `toml:"upstream"`
	Export   ExportConfig   `toml:"export"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ProxyConfig holds settings for links generated by the proxy.
type ProxyConfig struct {
	// APIURL is the externally reachable base of this service. Rewritten
	// playlists point at <APIURL>/proxy/stream.
	APIURL string `toml:"api_url"`
}

// UpstreamConfig holds settings for calls to media and playlist hosts.
type UpstreamConfig struct {
	UserAgent              string `toml:"user_agent"`
	StreamTimeoutSeconds   int    `toml:"stream_timeout_seconds"`
	PlaylistTimeoutSeconds int    `toml:"playlist_timeout_seconds"`
	MaxRedirects           int    `toml:"max_redirects"`
	IdleConnections        int    `toml:"idle_connections"`
	MaxPlaylistBytes       int64  `toml:"max_playlist_bytes"`
	HostRPS                int    `toml:"host_rps"` // 0 disables outbound limiting
}

// ExportConfig holds spreadsheet export settings.
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, if any, and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/ott-proxy/config.toml then configs/config.toml. Running without a
// config file is allowed; defaults and CLI/env values are used instead.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.APIURL != "" {
		c.Proxy.APIURL = cli.APIURL
	}
	if cli.Env != "" {
		c.Env = cli.Env
	}
	if cli.ExportDir != "" {
		c.Export.Dir = cli.ExportDir
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Proxy base URL: optional, but rewritten playlists rely on it starting with http.
	if c.Proxy.APIURL != "" {
		u, err := url.Parse(c.Proxy.APIURL)
		if err != nil {
			return fmt.Errorf("proxy.api_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("proxy.api_url must use http or https; got %q", c.Proxy.APIURL)
		}
		if u.Host == "" {
			return fmt.Errorf("proxy.api_url must include a host; got %q", c.Proxy.APIURL)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.StreamTimeoutSeconds < 0 {
		return fmt.Errorf("upstream.stream_timeout_seconds must be non-negative; got %d", c.Upstream.StreamTimeoutSeconds)
	}
	if c.Upstream.PlaylistTimeoutSeconds < 0 {
		return fmt.Errorf("upstream.playlist_timeout_seconds must be non-negative; got %d", c.Upstream.PlaylistTimeoutSeconds)
	}
	if c.Upstream.MaxRedirects < 0 {
		return fmt.Errorf("upstream.max_redirects must be non-negative; got %d", c.Upstream.MaxRedirects)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.MaxPlaylistBytes < 0 {
		return fmt.Errorf("upstream.max_playlist_bytes must be non-negative; got %d", c.Upstream.MaxPlaylistBytes)
	}
	if c.Upstream.HostRPS < 0 {
		return fmt.Errorf("upstream.host_rps must be non-negative; got %d", c.Upstream.HostRPS)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	switch strings.ToLower(c.Env) {
	case EnvDevelopment, "production", "test", "":
		// valid
	default:
		return fmt.Errorf("env must be one of: development, production, test; got %q", c.Env)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/proxy", "/export", "/healthz"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, MaxRedirects, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key. Setting
// max_redirects=0 in the config file therefore results in the default (5).
func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "production"
	}
	c.Env = strings.ToLower(c.Env)
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Proxy.APIURL == "" {
		c.Proxy.APIURL = "http://localhost:8000"
	}
	c.Proxy.APIURL = strings.TrimRight(c.Proxy.APIURL, "/")
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = DefaultUserAgent
	}
	if c.Upstream.StreamTimeoutSeconds == 0 {
		c.Upstream.StreamTimeoutSeconds = 30
	}
	if c.Upstream.PlaylistTimeoutSeconds == 0 {
		c.Upstream.PlaylistTimeoutSeconds = 15
	}
	if c.Upstream.MaxRedirects == 0 {
		c.Upstream.MaxRedirects = 5
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.MaxPlaylistBytes == 0 {
		c.Upstream.MaxPlaylistBytes = 5 * 1024 * 1024 // 5 MB
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "exports"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// IsDevelopment reports whether raw error messages may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}

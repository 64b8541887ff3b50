// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultSiteBaseURL    = "http://127.0.0.1:8080"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "openfolio"
	DefaultPGSSLMode      = "disable"
	DefaultGatewayTimeout = 10
	DefaultRateWindow     = 60
	DefaultRateMax        = 10
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Site      SiteConfig      `toml:"site"`
	Auth      AuthConfig      `toml:"auth"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Postgres  PostgresConfig  `toml:"postgres"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// SiteConfig holds the public base URL used when building redirect links.
type SiteConfig struct {
	BaseURL string `toml:"base_url"`
}

// AuthConfig holds the JWT secret shared with the authentication gateway.
// Access tokens are minted by the gateway; this service only verifies them.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// GatewayConfig holds the authentication gateway endpoint and API key.
type GatewayConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the gateway request timeout as a duration.
func (c GatewayConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultGatewayTimeout
	}
	return time.Duration(seconds) * time.Second
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// RateLimitConfig holds the fixed-window limiter policy for availability checks.
type RateLimitConfig struct {
	WindowSeconds int `toml:"window_seconds"`
	MaxRequests   int `toml:"max_requests"`
}

// Window returns the limiter window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	seconds := c.WindowSeconds
	if seconds <= 0 {
		seconds = DefaultRateWindow
	}
	return time.Duration(seconds) * time.Second
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Site: SiteConfig{
			BaseURL: DefaultSiteBaseURL,
		},
		Gateway: GatewayConfig{
			TimeoutSeconds: DefaultGatewayTimeout,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		RateLimit: RateLimitConfig{
			WindowSeconds: DefaultRateWindow,
			MaxRequests:   DefaultRateMax,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	cfg.Site.BaseURL = strings.TrimRight(cfg.Site.BaseURL, "/")
	cfg.Gateway.BaseURL = strings.TrimRight(cfg.Gateway.BaseURL, "/")

	return cfg, nil
}

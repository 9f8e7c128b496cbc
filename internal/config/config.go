// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// Variable names are the section prefix joined with the field key, so
// Server.Port is read from SERVER_PORT and RateLimit.Burst from RATE_LIMIT_BURST.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Upload    UploadConfig    `envconfig:"UPLOAD"`
	Session   SessionConfig   `envconfig:"SESSION"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	Security  SecurityConfig  `envconfig:"SECURITY"`
	Logging   LoggingConfig   `envconfig:"LOG"`
	Metrics   MetricsConfig   `envconfig:"METRICS"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8080" validate:"gte=1,lte=65535"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s" validate:"gte=0"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s" validate:"gte=0"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s" validate:"gte=0"`

	// ShutdownTimeout bounds how long shutdown waits for running pipelines.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	// RequestTimeout is applied by middleware to every request.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
}

// UploadConfig limits what a single request may send.
type UploadConfig struct {
	// MaxFileSize is per file, in bytes (default 100MB).
	MaxFileSize int64 `envconfig:"MAX_FILE_SIZE" default:"104857600" validate:"gt=0"`

	// MaxFiles caps the files accepted in one upload.
	MaxFiles int `envconfig:"MAX_FILES" default:"20" validate:"gte=1"`

	MaxConcurrent int           `envconfig:"MAX_CONCURRENT" default:"4" validate:"gte=1"`
	MaxWaitTime   time.Duration `envconfig:"MAX_WAIT_TIME" default:"30s" validate:"gt=0"`

	// PreviewRows is how many rows the preview table shows.
	PreviewRows int `envconfig:"PREVIEW_ROWS" default:"5" validate:"gte=1,lte=100"`
}

// SessionConfig controls the in-memory session store.
type SessionConfig struct {
	TTL           time.Duration `envconfig:"TTL" default:"30m" validate:"gt=0"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m" validate:"gt=0"`
}

// RateLimitConfig is a per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool    `envconfig:"ENABLED" default:"true"`
	RequestsPerSecond float64 `envconfig:"REQUESTS_PER_SECOND" default:"5" validate:"gte=0"`
	Burst             int     `envconfig:"BURST" default:"20" validate:"gte=0"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy IPs or CIDRs whose
	// X-Forwarded-For / X-Real-IP headers are believed.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" validate:"dive,cidr|ip"`

	EnableCSP bool `envconfig:"ENABLE_CSP" default:"true"`

	// AllowedOrigins enables CORS on /api for these origins. Empty disables it.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" validate:"dive,url"`

	// APIKeys, when set, are required in X-API-Key on /api requests.
	APIKeys []string `envconfig:"API_KEYS" validate:"dive,min=16"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format string `envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Package config loads server settings from environment variables with
// defaults, and validates them on startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Pipeline PipelineConfig
	Publish  PublishConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `envconfig:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight batches (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig limits what a single request may send.
type UploadConfig struct {
	// MaxFileSize caps the whole request body in bytes (default: 20MB)
	MaxFileSize int64 `envconfig:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxFiles is the most files accepted in one batch (default: 10)
	MaxFiles int `envconfig:"UPLOAD_MAX_FILES" default:"10"`

	// MaxConcurrent is the maximum number of batches processed at once (default: 4)
	MaxConcurrent int `envconfig:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a batch slot (default: 10s)
	MaxWaitTime time.Duration `envconfig:"UPLOAD_MAX_WAIT_TIME" default:"10s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `envconfig:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `envconfig:"SECURITY_ENABLE_CSP" default:"true"`

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that sets these headers.
	TrustProxy bool `envconfig:"SECURITY_TRUST_PROXY" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// PipelineConfig holds defaults for requests that leave them unset.
type PipelineConfig struct {
	PreviewRows int `envconfig:"PIPELINE_PREVIEW_ROWS" default:"5"`

	// HistogramBins of 0 selects Sturges' rule.
	HistogramBins int `envconfig:"PIPELINE_HISTOGRAM_BINS" default:"0"`
}

// PublishConfig configures the optional Postgres sink. An empty URL
// disables publishing.
type PublishConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"4"`
}

// Enabled reports whether a database URL is configured.
func (c PublishConfig) Enabled() bool { return c.DatabaseURL != "" }

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

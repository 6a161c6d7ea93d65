// Package config loads application settings from the environment, applying
// defaults and validating everything on startup so misconfiguration fails
// fast.
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
	Database DatabaseConfig
	Import   ImportConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`
}

// Store drivers accepted by DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DatabaseConfig holds store settings.
type DatabaseConfig struct {
	// Driver selects the store: postgres, sqlite, or memory (default: sqlite)
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// DB_URL is read when DATABASE_URL is unset.
	URL string `env:"DATABASE_URL"`

	// Path is the SQLite database file (default: lpcsv.db)
	Path string `env:"DB_PATH" envDefault:"lpcsv.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`

	// AutoMigrate creates missing tables on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// ImportConfig holds framework import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" envDefault:"10485760"`

	// MaxConcurrent is the maximum number of imports running at once (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" envDefault:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" envDefault:"30s"`

	// Timeout bounds a single import (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" envDefault:"5m"`

	// SessionTTL is how long a prepared import waits for confirmation (default: 30m)
	SessionTTL time.Duration `env:"IMPORT_SESSION_TTL" envDefault:"30m"`

	// Delimiter is the default CSV delimiter name (default: comma)
	Delimiter string `env:"IMPORT_DELIMITER" envDefault:"comma"`

	// Encoding is the default file encoding label (default: utf-8)
	Encoding string `env:"IMPORT_ENCODING" envDefault:"utf-8"`

	// FrameworkPolicy resolves repeated framework rows (default: reject)
	FrameworkPolicy string `env:"IMPORT_FRAMEWORK_POLICY" envDefault:"reject"`

	// DuplicatePolicy resolves repeated competency idnumbers (default: keep-last)
	DuplicatePolicy string `env:"IMPORT_DUPLICATE_POLICY" envDefault:"keep-last"`

	// ContextID is the context new frameworks belong to (default: 1)
	ContextID int64 `env:"IMPORT_CONTEXT_ID" envDefault:"1"`

	// HistorySize is how many finished imports GET /api/imports lists (default: 100)
	HistorySize int `env:"IMPORT_HISTORY_SIZE" envDefault:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" envDefault:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

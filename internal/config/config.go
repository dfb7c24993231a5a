// Package config provides centralized configuration management for gmvsync.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source   SourceConfig
	Sync     SyncConfig
	Store    StoreConfig
	Server   ServerConfig
	Schedule ScheduleConfig
	History  HistoryConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// SourceConfig describes where import folders live and how their files are encoded.
type SourceConfig struct {
	// BaseFolder holds one sub folder per import (default: ./gmv_imports)
	BaseFolder string `env:"GMV_BASE_FOLDER" envDefault:"./gmv_imports"`

	// Separator is the CSV field delimiter, a single character (default: ,)
	Separator string `env:"GMV_CSV_SEPARATOR" envDefault:","`

	// Encoding of the export files: utf-8, latin1 or windows-1252 (default: utf-8)
	Encoding string `env:"GMV_CSV_ENCODING" envDefault:"utf-8"`
}

// SyncConfig holds reconciliation settings.
type SyncConfig struct {
	// XCMProfile is the matcher profile used for individuals that have no identity yet.
	// Required when SyncIndividuals is enabled.
	XCMProfile string `env:"GMV_XCM_PROFILE_INDIVIDUALS"`

	// SyncIndividuals enables the individuals phase (default: true)
	SyncIndividuals bool `env:"GMV_SYNC_INDIVIDUALS" envDefault:"true"`

	// EmploymentMode is off, import or sync (default: off)
	EmploymentMode string `env:"GMV_EMPLOYMENT_MODE" envDefault:"off"`

	// EmploymentRelationship is the relationship type name used for employments
	EmploymentRelationship string `env:"GMV_EMPLOYMENT_RELATIONSHIP" envDefault:"Employee of"`

	// ChangeActivityTypeID selects the activity type for change records; 0 disables them
	ChangeActivityTypeID int64 `env:"GMV_CHANGE_ACTIVITY_TYPE_ID" envDefault:"0"`

	// OptionOrphanPolicy applies to option values missing from a reference list:
	// ignore, disable or delete (default: ignore)
	OptionOrphanPolicy string `env:"GMV_OPTION_ORPHAN_POLICY" envDefault:"ignore"`

	// PhoneTypeMap maps export phone type codes to target phone type ids
	PhoneTypeMap map[string]string `env:"GMV_PHONE_TYPE_MAP" envDefault:"0:2,1:1,2:1,3:1" envKeyValSeparator:":"`

	// IdentityType is the identity tracker type for external ids (default: gmv_id)
	IdentityType string `env:"GMV_IDENTITY_TYPE" envDefault:"gmv_id"`

	// IdentifierPrefix is prepended to external ids in the identity tracker (default: GMV-)
	IdentifierPrefix string `env:"GMV_IDENTIFIER_PREFIX" envDefault:"GMV-"`
}

// StoreConfig holds target store connection settings.
type StoreConfig struct {
	// Driver is pgx, mysql or sqlite (default: pgx)
	Driver string `env:"DB_DRIVER" envDefault:"pgx"`

	// URL is the driver specific connection string (required)
	URL string `env:"DATABASE_URL,required"`

	// MaxOpenConns is the maximum number of open connections (default: 4)
	MaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"4"`

	// MaxIdleConns is the maximum number of idle connections (default: 2)
	MaxIdleConns int `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`

	// ConnMaxLifetime is the maximum lifetime of a connection (default: 1h)
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for an active run (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// RunWaitTime is how long a trigger waits for the active run to finish (default: 5s)
	RunWaitTime time.Duration `env:"GMV_RUN_WAIT_TIME" envDefault:"5s"`
}

// ScheduleConfig holds background trigger settings.
type ScheduleConfig struct {
	// Cron runs the newest import folder on a schedule; empty disables it
	Cron string `env:"GMV_SCHEDULE"`

	// Watch runs new import folders as they appear under the base folder
	Watch bool `env:"GMV_WATCH" envDefault:"false"`

	// WatchDebounce waits for a new folder to settle before running it (default: 2s)
	WatchDebounce time.Duration `env:"GMV_WATCH_DEBOUNCE" envDefault:"2s"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	// Path of the SQLite run history database (default: gmvsync-history.db)
	Path string `env:"GMV_HISTORY_DB" envDefault:"gmvsync-history.db"`
}

// SecurityConfig protects the HTTP API.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects API requests without a valid X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" envDefault:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" envDefault:"true"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Comma returns the configured separator as a rune.
func (c *SourceConfig) Comma() rune {
	for _, r := range c.Separator {
		return r
	}
	return ','
}

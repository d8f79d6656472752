package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Registry backends
const (
	RegistryPostgres = "postgres"
	RegistryMemory   = "memory"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Feed     FeedConfig     `json:"feed"`
	Tracker  TrackerConfig  `json:"tracker"`
	Registry RegistryConfig `json:"registry"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// TLSEnabled determines if HTTPS should be used
	TLSEnabled bool `json:"tls_enabled"`

	// TLSCertFile is the path to the TLS certificate
	TLSCertFile string `json:"tls_cert_file"`

	// TLSKeyFile is the path to the TLS private key
	TLSKeyFile string `json:"tls_key_file"`

	// AllowedOrigins lists CORS origins allowed to embed the board API.
	// Empty allows any origin.
	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Driver is the database driver (postgres)
	Driver string `json:"driver"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// FeedConfig contains whazzup feed settings.
type FeedConfig struct {
	// URL is the whazzup endpoint
	URL string `json:"url"`

	// TimeoutSeconds bounds a single feed request
	TimeoutSeconds float64 `json:"timeout_seconds"`

	// MinRequestIntervalSeconds is the minimum time between feed requests.
	// 0 disables pacing.
	MinRequestIntervalSeconds float64 `json:"min_request_interval_seconds"`

	// UserAgent is sent with every feed request
	UserAgent string `json:"user_agent,omitempty"`
}

// TrackerConfig contains refresh loop settings.
type TrackerConfig struct {
	// RefreshIntervalSeconds is how often the board is rebuilt
	RefreshIntervalSeconds float64 `json:"refresh_interval_seconds"`

	// FallbackSpeedKnots enables an airport-to-airport EET estimate at this
	// average speed for flights without a filed EET or live track.
	// 0 disables it.
	FallbackSpeedKnots float64 `json:"fallback_speed_knots"`
}

// AirportSeed is an airport loaded into the registry at startup.
type AirportSeed struct {
	ICAO      string  `json:"icao"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegistryConfig selects where tracked airports are stored.
type RegistryConfig struct {
	// Backend is "postgres" or "memory"
	Backend string `json:"backend"`

	// Airports are inserted at startup when not already registered
	Airports []AirportSeed `json:"airports"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// File is the log file path. Empty logs to stderr.
	File string `json:"file"`

	// MaxSizeMB is the size at which the log file is rotated
	MaxSizeMB int `json:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep
	MaxBackups int `json:"max_backups"`

	// MaxAgeDays is how long rotated files are kept
	MaxAgeDays int `json:"max_age_days"`

	// Compress gzips rotated files
	Compress bool `json:"compress"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       "8080",
			Host:       "0.0.0.0",
			TLSEnabled: false,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			Database:     "ivaotracker",
			Username:     "ivaotracker",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Feed: FeedConfig{
			URL:                       "https://api.ivao.aero/v2/tracker/whazzup",
			TimeoutSeconds:            10,
			MinRequestIntervalSeconds: 1,
		},
		Tracker: TrackerConfig{
			RefreshIntervalSeconds: 3,
			FallbackSpeedKnots:     0, // e.g. 450 for a nominal airliner cruise
		},
		Registry: RegistryConfig{
			Backend: RegistryPostgres,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Validate reports configuration values the services cannot run with.
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return errors.New("invalid config: feed.url is empty")
	}
	if c.Feed.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid config: feed.timeout_seconds must be positive, got %v", c.Feed.TimeoutSeconds)
	}
	if c.Feed.MinRequestIntervalSeconds < 0 {
		return fmt.Errorf("invalid config: feed.min_request_interval_seconds must not be negative, got %v",
			c.Feed.MinRequestIntervalSeconds)
	}
	if c.Tracker.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("invalid config: tracker.refresh_interval_seconds must be positive, got %v",
			c.Tracker.RefreshIntervalSeconds)
	}
	if c.Tracker.FallbackSpeedKnots < 0 {
		return fmt.Errorf("invalid config: tracker.fallback_speed_knots must not be negative, got %v",
			c.Tracker.FallbackSpeedKnots)
	}
	switch c.Registry.Backend {
	case RegistryPostgres, RegistryMemory:
	default:
		return fmt.Errorf("invalid config: unknown registry backend %q", c.Registry.Backend)
	}
	return nil
}

// Timeout returns the feed request timeout.
func (cfg *FeedConfig) Timeout() time.Duration {
	return seconds(cfg.TimeoutSeconds)
}

// MinInterval returns the minimum time between feed requests. A zero
// setting returns a negative duration, which disables pacing in the client.
func (cfg *FeedConfig) MinInterval() time.Duration {
	if cfg.MinRequestIntervalSeconds == 0 {
		return -1
	}
	return seconds(cfg.MinRequestIntervalSeconds)
}

// RefreshInterval returns the board refresh period.
func (cfg *TrackerConfig) RefreshInterval() time.Duration {
	return seconds(cfg.RefreshIntervalSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("IVAO_TRACKER_PORT"); port != "" {
		c.Server.Port = port
	}
	if dbPassword := os.Getenv("IVAO_TRACKER_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if feedURL := os.Getenv("IVAO_TRACKER_FEED_URL"); feedURL != "" {
		c.Feed.URL = feedURL
	}
	if backend := os.Getenv("IVAO_TRACKER_REGISTRY"); backend != "" {
		c.Registry.Backend = strings.ToLower(backend)
	}
	if logFile := os.Getenv("IVAO_TRACKER_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}
}

// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Document DocumentConfig `mapstructure:"document"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LedgerConfig contains ledger database configuration
type LedgerConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// DocumentConfig contains per-company document host configuration
type DocumentConfig struct {
	Type           string        `mapstructure:"type"` // http, memory
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RemoteConfig contains remote content store configuration
type RemoteConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	SiteID         string        `mapstructure:"site_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SyncConfig contains sync orchestrator configuration. It is passed into the
// orchestrator explicitly, never read from ambient state.
type SyncConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	MaxPushAttempts int           `mapstructure:"max_push_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay   time.Duration `mapstructure:"retry_max_delay"`
	LeaseTTL        time.Duration `mapstructure:"lease_ttl"`
	ProfileTimeout  time.Duration `mapstructure:"profile_timeout"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("PROFILE_SYNC")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Ledger.ConnectionString = dbURL
	}
	if endpoint := os.Getenv("REMOTE_STORE_ENDPOINT"); endpoint != "" {
		config.Remote.Endpoint = endpoint
	}
	if key := os.Getenv("REMOTE_STORE_API_KEY"); key != "" {
		config.Remote.APIKey = key
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "profile-sync-engine")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Ledger defaults
	viper.SetDefault("ledger.type", "sqlite")
	viper.SetDefault("ledger.connection_string", "./data/profiles.db")
	viper.SetDefault("ledger.max_connections", 25)
	viper.SetDefault("ledger.max_idle_time", "15m")

	// Document host defaults
	viper.SetDefault("document.type", "http")
	viper.SetDefault("document.base_url", "http://localhost:9090")
	viper.SetDefault("document.request_timeout", "30s")

	// Remote content store defaults
	viper.SetDefault("remote.endpoint", "http://localhost:9091/v1/profiles")
	viper.SetDefault("remote.request_timeout", "30s")

	// Sync defaults (the source system ran on a 5 minute trigger)
	viper.SetDefault("sync.enabled", true)
	viper.SetDefault("sync.interval", "5m")
	viper.SetDefault("sync.max_push_attempts", 5)
	viper.SetDefault("sync.retry_base_delay", "1m")
	viper.SetDefault("sync.retry_max_delay", "30m")
	viper.SetDefault("sync.lease_ttl", "2m")
	viper.SetDefault("sync.profile_timeout", "60s")

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Ledger.ConnectionString == "" {
		return fmt.Errorf("ledger connection string is required")
	}
	if c.Remote.Endpoint == "" {
		return fmt.Errorf("remote store endpoint is required")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.Sync.MaxPushAttempts <= 0 {
		return fmt.Errorf("max push attempts must be positive")
	}
	if c.Sync.LeaseTTL <= 0 {
		return fmt.Errorf("sync lease TTL must be positive")
	}
	return nil
}

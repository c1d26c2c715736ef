package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"mcsim/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig `validate:"required"`
	Database   DatabaseConfig
	Server     ServerConfig `validate:"required"`
	Paths      PathConfig
}

// SimulationConfig holds the defaults applied to run requests that leave
// a field unset, plus dispatcher sizing.
type SimulationConfig struct {
	Lanes         int
	TrialsPerLane int
	Workers       int
	Seed          int64
	HistogramBins int
	RunTimeout    time.Duration
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory run store; sqlite:// and file: URLs select a local sqlite
// file, anything else is a postgres connection string.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	GinMode string
}

// PathConfig holds file system paths
type PathConfig struct {
	ReportDir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Simulation: *loadSimulationConfig(),
		Database:   *loadDatabaseConfig(),
		Server:     *loadServerConfig(),
		Paths:      *loadPathConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// HasDatabase reports whether a SQL store is configured.
func (c *DatabaseConfig) HasDatabase() bool {
	return c.URL != ""
}

// Driver returns the sqlx driver name and data source for the URL.
func (c *DatabaseConfig) Driver() (string, string) {
	switch {
	case strings.HasPrefix(c.URL, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(c.URL, "sqlite://")
	case strings.HasPrefix(c.URL, "file:"):
		return "sqlite3", c.URL
	default:
		return "postgres", c.URL
	}
}

func loadSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		Lanes:         getEnvIntOrDefault("MC_LANES", 1024),
		TrialsPerLane: getEnvIntOrDefault("MC_TRIALS_PER_LANE", 1000),
		Workers:       getEnvIntOrDefault("MC_WORKERS", 0),
		Seed:          getEnvInt64OrDefault("MC_SEED", 42),
		HistogramBins: getEnvIntOrDefault("MC_HISTOGRAM_BINS", 50),
		RunTimeout:    getEnvDurationOrDefault("MC_RUN_TIMEOUT", 2*time.Minute),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:             getEnvOrDefault("DATABASE_URL", ""),
		MaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		ConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		ReportDir: getEnvOrDefault("REPORT_DIR", "./reports"),
	}
}

func validateConfig(config *Config) error {
	sim := config.Simulation
	if sim.Lanes <= 0 {
		return errors.ConfigInvalid("MC_LANES must be positive")
	}
	if sim.TrialsPerLane <= 0 {
		return errors.ConfigInvalid("MC_TRIALS_PER_LANE must be positive")
	}
	if sim.Workers < 0 {
		return errors.ConfigInvalid("MC_WORKERS must not be negative")
	}
	if sim.HistogramBins <= 0 {
		return errors.ConfigInvalid("MC_HISTOGRAM_BINS must be positive")
	}
	if sim.RunTimeout <= 0 {
		return errors.ConfigInvalid("MC_RUN_TIMEOUT must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

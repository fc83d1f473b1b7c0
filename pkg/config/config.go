package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDatasetURL is the OWID COVID-19 dataset the reports were designed against
const DefaultDatasetURL = "https://covid.ourworldindata.org/data/owid-covid-data.csv"

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Source dataset
	Dataset DatasetConfig

	// Report artefacts
	Output OutputConfig

	// Database (optional, empty URL disables persistence)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Scheduled refresh
	Refresh RefreshConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatasetConfig holds the OWID download settings
type DatasetConfig struct {
	URL            string
	CachePath      string // local copy written by `fetch`
	WorldPath      string // countries GeoJSON used by the map reports
	Timeout        time.Duration
	RequestsPerSec float64
}

// OutputConfig holds where report artefacts go
type OutputConfig struct {
	Dir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether snapshots should be persisted
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RefreshConfig configures the scheduled refresh job
type RefreshConfig struct {
	Schedule   string // cron expression with seconds
	Retries    int
	RetryDelay time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Dataset: DatasetConfig{
			URL:            getEnv("DATASET_URL", DefaultDatasetURL),
			CachePath:      getEnv("DATASET_CACHE_PATH", filepath.Join("data", "owid-covid-data.csv")),
			WorldPath:      getEnv("WORLD_GEOJSON_PATH", filepath.Join("data", "naturalearth_lowres.geojson")),
			Timeout:        getEnvAsDuration("DATASET_TIMEOUT", "2m"),
			RequestsPerSec: getEnvAsFloat("DATASET_RPS", 1),
		},

		Output: OutputConfig{
			Dir: getEnv("OUTPUT_DIR", "out"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Refresh: RefreshConfig{
			Schedule:   getEnv("REFRESH_SCHEDULE", "0 30 6 * * *"),
			Retries:    getEnvAsInt("REFRESH_RETRIES", 2),
			RetryDelay: getEnvAsDuration("REFRESH_RETRY_DELAY", "10m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Dataset.URL == "" {
		return fmt.Errorf("DATASET_URL is required")
	}

	if c.Dataset.Timeout <= 0 {
		return fmt.Errorf("DATASET_TIMEOUT must be positive")
	}

	if c.Dataset.RequestsPerSec <= 0 {
		return fmt.Errorf("DATASET_RPS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

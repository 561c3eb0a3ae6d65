package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Sessions      SessionConfig
	Uploads       UploadConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
	CORSOrigins        []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// SessionConfig controls import-session persistence and expiry.
type SessionConfig struct {
	Dir                  string
	TimeoutHours         int
	CleanupIntervalHours int
}

type UploadConfig struct {
	Dir          string
	MaxSizeBytes int64
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 100),
			CORSOrigins:        []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "mediaplanner-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Sessions: SessionConfig{
			Dir:                  getEnv("SESSION_DIR", "data/sessions"),
			TimeoutHours:         getEnvAsInt("SESSION_TIMEOUT_HOURS", 4),
			CleanupIntervalHours: getEnvAsInt("SESSION_CLEANUP_INTERVAL_HOURS", 1),
		},
		Uploads: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "data/uploads"),
			MaxSizeBytes: int64(getEnvAsInt("UPLOAD_MAX_SIZE_MB", 50)) * 1024 * 1024,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if cfg.Sessions.TimeoutHours < 1 {
		cfg.Sessions.TimeoutHours = 1
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

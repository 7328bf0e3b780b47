package config

import (
	"fmt"
	"os"
	"strconv"

	"bizbiller/internal/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// Storage
	DBDriver    string
	SQLitePath  string
	DatabaseURL string

	// Optional distributed lock; the in-process locker is used when empty.
	RedisAddress  string
	RedisPassword string

	// Session defaults for the CLI
	BusinessID  int64
	PhoneRegion string

	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment. Call godotenv.Load first to pick up .env.
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:      getEnv("DB_DRIVER", DriverSQLite),
		SQLitePath:    getEnv("SQLITE_PATH", "bizbiller.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		PhoneRegion:   getEnv("PHONE_REGION", "IN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}

	if raw := os.Getenv("BUSINESS_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid BUSINESS_ID %q: %w", raw, err)
		}
		cfg.BusinessID = id
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=%s", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	if c.BusinessID < 0 {
		return fmt.Errorf("BUSINESS_ID must not be negative")
	}
	if len(c.PhoneRegion) != 2 {
		return fmt.Errorf("PHONE_REGION must be a two-letter region code, got %q", c.PhoneRegion)
	}
	return nil
}

// LoggerConfig returns the logging section of the configuration.
func (c *Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

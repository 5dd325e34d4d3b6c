// Package config loads application configuration from environment
// variables, with optional .env support for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Ledger identity. Owner is the account allowed to change fees,
	// tokens, and the collector, and to withdraw. Custody is the
	// ledger's own account on the token network.
	Owner          string
	CustodyAccount string

	// Storage. DatabaseURL selects PostgreSQL when set; otherwise the
	// ledger runs on a local SQLite file at DBPath.
	DatabaseURL string
	DBPath      string

	// Redis status cache. Empty disables the cache.
	RedisAddr     string
	RedisPassword string

	// RabbitMQ event publishing. Empty selects the in-process bus.
	RabbitMQURL string

	// Token gateway. Empty selects the in-memory token network.
	TokenGatewayURL     string
	TokenGatewayTimeout time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Owner:          getEnv("SUBLEDGER_OWNER", ""),
		CustodyAccount: getEnv("SUBLEDGER_CUSTODY_ACCOUNT", "acct:subledger"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBPath:      getEnv("SUBLEDGER_DB_PATH", defaultDBPath()),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		TokenGatewayURL:     getEnv("TOKEN_GATEWAY_URL", ""),
		TokenGatewayTimeout: getDurationEnv("TOKEN_GATEWAY_TIMEOUT", 10*time.Second),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsePostgres reports whether a PostgreSQL connection string is configured.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "subledger.db"
	}
	return home + "/.subledger/subledger.db"
}

// Package config provides configuration management for the commerce router.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration to ensure the process starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - SERVICE_ENVIRONMENT: Provider config environment tag (default: production)
//
// Database Configuration:
//   - DATABASE_TYPE: "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./commerce_router.db)
//   - POSTGRES_HOST: PostgreSQL host (required if using PostgreSQL)
//   - POSTGRES_PORT: PostgreSQL port (default: 5432)
//   - POSTGRES_DB: PostgreSQL database name (required if using PostgreSQL)
//   - POSTGRES_USER: PostgreSQL username (required if using PostgreSQL)
//   - POSTGRES_PASSWORD: PostgreSQL password
//   - POSTGRES_SSL_MODE: PostgreSQL SSL mode (default: disable)
//
// Redis Configuration (optional, enables cross-replica cache invalidation):
//   - REDIS_ADDRESS: Redis server address (empty disables redis)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Security Configuration:
//   - JWT_SECRET: JWT signing secret for admin endpoints (required, min 32 chars)
//   - CONFIG_ENCRYPTION_KEY: Key for decrypting provider credentials
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration values for the commerce router.
// All string fields correspond to environment variables that can be set to
// override the default values.
type Config struct {
	// Application settings
	Port               string // Server port number
	LogLevel           string // Logging level (debug, info, warn, error)
	ServiceEnvironment string // Environment tag used to select provider configs

	// Database configuration
	DatabaseType     string // "sqlite" or "postgres"
	DatabasePath     string // Path to SQLite database file
	PostgresHost     string // PostgreSQL host address
	PostgresPort     string // PostgreSQL port number
	PostgresDB       string // PostgreSQL database name
	PostgresUser     string // PostgreSQL username
	PostgresPassword string // PostgreSQL password
	PostgresSSLMode  string // PostgreSQL SSL mode (disable, require, etc.)

	// Redis configuration for distributed cache invalidation
	RedisAddress  string // Redis server address (host:port), empty disables redis
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)

	// JWT authentication configuration
	JWTSecret string // Secret key for admin endpoint tokens (required)

	// Encryption configuration
	EncryptionKey string // Key for decrypting provider credential fields
}

// Load creates a new Config instance with values loaded from environment
// variables. It does not validate; call Validate() on the returned Config.
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ServiceEnvironment: getEnv("SERVICE_ENVIRONMENT", "production"),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./commerce_router.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "commerce_router"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		EncryptionKey: getEnv("CONFIG_ENCRYPTION_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks required fields, field formats and cross-field
// dependencies. The application should call this after Load() and before
// starting.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	if c.ServiceEnvironment == "" {
		return fmt.Errorf("SERVICE_ENVIRONMENT must not be empty")
	}

	return nil
}

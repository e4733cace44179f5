// Package config provides configuration management for the search bridge.
// It loads configuration from environment variables and .env files.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/sumologic-mcp/internal/errors"
)

// DefaultEndpoint is the public multi-tenant API endpoint
const DefaultEndpoint = "https://api.sumologic.com"

// Config holds all application configuration
type Config struct {
	Sumo      SumoConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
}

// SumoConfig holds backend credentials and job lifecycle settings
type SumoConfig struct {
	AccessID      string
	AccessKey     string
	Endpoint      string
	QueryTimeout  time.Duration // Overall wait-for-completion bound per job
	PollInterval  time.Duration
	ClientTimeout time.Duration // Per HTTP request
}

// ServerConfig holds configuration for the streamable HTTP transport
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestsPerSec  int // Inbound, per client address
}

// RateLimitConfig holds outbound request pacing towards the backend
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// RedisConfig enables a request budget shared by every process using the same access id.
// Empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// TracingConfig selects the span exporter ("none" or "stdout")
type TracingConfig struct {
	Exporter string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, apperrors.NewConfigError("error loading .env file: " + err.Error())
		}
	}

	config := &Config{
		Sumo: SumoConfig{
			AccessID:      getEnv("SUMO_ACCESS_ID", ""),
			AccessKey:     getEnv("SUMO_ACCESS_KEY", ""),
			Endpoint:      getEnv("SUMO_ENDPOINT", DefaultEndpoint),
			QueryTimeout:  time.Duration(getEnvAsInt("QUERY_TIMEOUT", 300)) * time.Second,
			PollInterval:  getEnvAsDuration("POLL_INTERVAL", 2*time.Second),
			ClientTimeout: getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestsPerSec:  getEnvAsInt("SERVER_REQUESTS_PER_SECOND", 20),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("SUMO_REQUESTS_PER_SECOND", 4),
			Burst:             getEnvAsInt("SUMO_REQUEST_BURST", 4),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Exporter: strings.ToLower(getEnv("OTEL_EXPORTER", "none")),
		},
	}

	return config, nil
}

// Validate checks the settings needed to talk to the backend
func (c *Config) Validate() error {
	if c.Sumo.AccessID == "" || c.Sumo.AccessKey == "" {
		return apperrors.NewConfigError("SUMO_ACCESS_ID and SUMO_ACCESS_KEY environment variables must be set")
	}
	if c.Sumo.Endpoint == "" {
		return apperrors.NewConfigError("SUMO_ENDPOINT must not be empty")
	}
	if c.Sumo.QueryTimeout <= 0 {
		return apperrors.NewConfigError("QUERY_TIMEOUT must be positive")
	}
	if c.Sumo.PollInterval <= 0 {
		return apperrors.NewConfigError("POLL_INTERVAL must be positive")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Backend BackendConfig
	Batch   BatchConfig
	Store   StoreConfig
}

// BackendConfig holds remote extraction service configuration
type BackendConfig struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

// BatchConfig holds batch scheduler configuration
type BatchConfig struct {
	Concurrency int
}

// StoreConfig holds history store configuration
type StoreConfig struct {
	DSN string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     getEnv("BACKEND_URL", "http://localhost:8000"),
			HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		},
		Batch: BatchConfig{
			Concurrency: getEnvAsInt("BATCH_CONCURRENCY", 3),
		},
		Store: StoreConfig{
			DSN: getEnv("DB_DSN", "file:docproc.db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "BACKEND_URL is required", ErrInvalidInput)
	}
	if c.Batch.Concurrency <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_CONCURRENCY must be positive", ErrInvalidInput)
	}
	return nil
}

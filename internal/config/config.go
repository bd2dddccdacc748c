package config

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	ServerPort         string
	DatabaseURL        string
	RedisURL           string
	ProviderAPIBase    string
	ProviderAPIKey     string
	ProviderAPIVersion string
	ProviderAccountID  string
	IdempotencyHeader  string
	IdempotencyTTL     time.Duration
	LiveMode           bool
}

func LoadConfig() (*Config, error) {
	ttlStr := getEnv("IDEMPOTENCY_TTL", "24h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, errors.New("invalid IDEMPOTENCY_TTL format")
	}

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ProviderAPIBase:    os.Getenv("PROVIDER_API_BASE"),
		ProviderAPIKey:     os.Getenv("PROVIDER_API_KEY"),
		ProviderAPIVersion: getEnv("PROVIDER_API_VERSION", ""),
		ProviderAccountID:  getEnv("PROVIDER_ACCOUNT_ID", "default"),
		IdempotencyHeader:  getEnv("IDEMPOTENCY_HEADER", "Idempotency-Key"),
		IdempotencyTTL:     ttl,
		LiveMode:           getEnv("LIVE_MODE", "false") == "true",
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.ProviderAPIBase == "" {
		return nil, errors.New("PROVIDER_API_BASE is required")
	}
	if cfg.ProviderAPIKey == "" {
		return nil, errors.New("PROVIDER_API_KEY is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort         string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	ShopifyAPISecret   string
	ShopifyAccessToken string
	ShopifyShopDomain  string
	CacheTTL           time.Duration
	SyncRetries        int
	SyncRetryBackoff   time.Duration
}

func LoadConfig() (*Config, error) {
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, errors.New("invalid CACHE_TTL format")
	}
	retryBackoff, err := time.ParseDuration(getEnv("SYNC_RETRY_BACKOFF", "2s"))
	if err != nil {
		return nil, errors.New("invalid SYNC_RETRY_BACKOFF format")
	}
	retries, err := strconv.Atoi(getEnv("SYNC_RETRIES", "3"))
	if err != nil || retries < 1 {
		return nil, errors.New("invalid SYNC_RETRIES value")
	}

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ShopifyAPISecret:   os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyAccessToken: os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		ShopifyShopDomain:  os.Getenv("SHOPIFY_SHOP_DOMAIN"),
		CacheTTL:           cacheTTL,
		SyncRetries:        retries,
		SyncRetryBackoff:   retryBackoff,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
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

package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/Muffins-Corp/muffinscorp-go/muffins"
)

var (
	ErrMissingAPIKey    = errors.New("MUFFINS_API_KEY is required")
	ErrInvalidBaseURL   = errors.New("MUFFINS_BASE_URL must be an absolute http(s) URL")
	ErrInvalidRateLimit = errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	ErrInvalidTimeout   = errors.New("MUFFINS_TIMEOUT_SEC must be positive")
)

type Config struct {
	API       APIConfig
	Database  DatabaseConfig
	Log       LogConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

type APIConfig struct {
	Key     string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DatabaseConfig is optional. An empty URL disables transcript recording.
type DatabaseConfig struct {
	URL string
}

type LogConfig struct {
	Level string
}

type CacheConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

// MetricsConfig is optional. An empty Addr disables the /metrics listener.
type MetricsConfig struct {
	Addr string
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			Key:     os.Getenv("MUFFINS_API_KEY"),
			BaseURL: getEnvOrDefault("MUFFINS_BASE_URL", muffins.DefaultBaseURL),
			Model:   getEnvOrDefault("MUFFINS_MODEL", muffins.DefaultModel),
			Timeout: time.Duration(getEnvIntOrDefault("MUFFINS_TIMEOUT_SEC", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 300)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.Key == "" {
		return ErrMissingAPIKey
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return ErrInvalidRateLimit
	}
	if c.API.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// ClientConfig returns the API client settings. Cache, limiter and metrics
// are attached by the caller.
func (c *Config) ClientConfig() muffins.Config {
	return muffins.Config{
		APIKey:   c.API.Key,
		BaseURL:  c.API.BaseURL,
		Model:    c.API.Model,
		Timeout:  c.API.Timeout,
		CacheTTL: c.Cache.TTL,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/Muffins-Corp/muffinscorp-go/muffins"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr error
	}{
		{
			name: "valid config",
			envVars: map[string]string{
				"MUFFINS_API_KEY": "test_key",
			},
			wantErr: nil,
		},
		{
			name:    "missing api key",
			envVars: map[string]string{},
			wantErr: ErrMissingAPIKey,
		},
		{
			name: "relative base url",
			envVars: map[string]string{
				"MUFFINS_API_KEY":  "test_key",
				"MUFFINS_BASE_URL": "/api/public",
			},
			wantErr: ErrInvalidBaseURL,
		},
		{
			name: "unsupported scheme",
			envVars: map[string]string{
				"MUFFINS_API_KEY":  "test_key",
				"MUFFINS_BASE_URL": "ftp://chat.muffinscorp.com",
			},
			wantErr: ErrInvalidBaseURL,
		},
		{
			name: "zero rate limit",
			envVars: map[string]string{
				"MUFFINS_API_KEY":       "test_key",
				"RATE_LIMIT_PER_MINUTE": "0",
			},
			wantErr: ErrInvalidRateLimit,
		},
		{
			name: "negative timeout",
			envVars: map[string]string{
				"MUFFINS_API_KEY":     "test_key",
				"MUFFINS_TIMEOUT_SEC": "-5",
			},
			wantErr: ErrInvalidTimeout,
		},
		{
			name: "zero timeout",
			envVars: map[string]string{
				"MUFFINS_API_KEY":     "test_key",
				"MUFFINS_TIMEOUT_SEC": "0",
			},
			wantErr: ErrInvalidTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer clearEnvVars()

			cfg, err := Load()

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error = %v", err)
				return
			}

			if cfg == nil {
				t.Error("Load() returned nil config")
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	clearEnvVars()
	os.Setenv("MUFFINS_API_KEY", "test_key")
	defer clearEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != muffins.DefaultBaseURL {
		t.Errorf("API.BaseURL = %v, want %v", cfg.API.BaseURL, muffins.DefaultBaseURL)
	}
	if cfg.API.Model != muffins.DefaultModel {
		t.Errorf("API.Model = %v, want %v", cfg.API.Model, muffins.DefaultModel)
	}
	if cfg.API.Timeout != 60*time.Second {
		t.Errorf("API.Timeout = %v, want 60s", cfg.API.Timeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %v, want %v", cfg.Log.Level, "info")
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("RateLimit.RequestsPerMinute = %v, want 60", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Database.URL != "" || cfg.Metrics.Addr != "" {
		t.Errorf("optional settings should be empty, got %q / %q", cfg.Database.URL, cfg.Metrics.Addr)
	}
}

func TestClientConfig(t *testing.T) {
	clearEnvVars()
	os.Setenv("MUFFINS_API_KEY", "test_key")
	os.Setenv("MUFFINS_BASE_URL", "http://localhost:8080/api")
	os.Setenv("MUFFINS_MODEL", "chat-model-large")
	os.Setenv("MUFFINS_TIMEOUT_SEC", "5")
	os.Setenv("CACHE_TTL_SEC", "30")
	defer clearEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got := cfg.ClientConfig()
	if got.APIKey != "test_key" || got.BaseURL != "http://localhost:8080/api" || got.Model != "chat-model-large" {
		t.Errorf("ClientConfig() = %+v", got)
	}
	if got.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", got.Timeout)
	}
	if got.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", got.CacheTTL)
	}
}

func TestGetEnvIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal int
		want       int
	}{
		{"valid int", "42", 10, 42},
		{"empty string", "", 10, 10},
		{"invalid int", "abc", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_INT", tt.envValue)
			defer os.Unsetenv("TEST_INT")

			got := getEnvIntOrDefault("TEST_INT", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvIntOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func clearEnvVars() {
	envVars := []string{
		"MUFFINS_API_KEY",
		"MUFFINS_BASE_URL",
		"MUFFINS_MODEL",
		"MUFFINS_TIMEOUT_SEC",
		"DATABASE_URL",
		"LOG_LEVEL",
		"CACHE_TTL_SEC",
		"RATE_LIMIT_PER_MINUTE",
		"METRICS_ADDR",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(t *testing.T, cfg *Config)
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "8081", cfg.Port)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "https://v6.exchangerate-api.com/v6", cfg.Provider.BaseURL)
				assert.Equal(t, KeyInPath, cfg.Provider.KeyPlacement)
				assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, "USD", cfg.DefaultBaseCurrency)
				assert.Equal(t, 4, cfg.MaxConcurrentRequests)
				assert.True(t, cfg.RateLimitEnabled)
				assert.Equal(t, 100, cfg.RateLimitRequests)
				assert.Equal(t, 60*time.Second, cfg.RateLimitWindow)
				assert.Equal(t, 10, cfg.RateLimitBurst)
				assert.Empty(t, cfg.TrustedProxies)
			},
		},
		{
			name: "custom configuration",
			envVars: map[string]string{
				"PORT":                            "9090",
				"LOG_LEVEL":                       "debug",
				"EXCHANGE_RATE_API_BASE_URL":      "https://rates.example.com/v6/",
				"EXCHANGE_RATE_API_KEY":           "secret",
				"EXCHANGE_RATE_API_KEY_PLACEMENT": "HEADER",
				"EXCHANGE_RATE_API_TIMEOUT":       "3s",
				"DEFAULT_BASE_CURRENCY":           "kes",
				"RATE_LIMIT_ENABLED":              "false",
				"RATE_LIMIT_WINDOW":               "2m",
				"TRUSTED_PROXIES":                 "10.0.0.0/8, 192.168.1.10",
			},
			expected: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "9090", cfg.Port)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "https://rates.example.com/v6", cfg.Provider.BaseURL)
				assert.Equal(t, "secret", cfg.Provider.APIKey)
				assert.Equal(t, KeyInHeader, cfg.Provider.KeyPlacement)
				assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, "KES", cfg.DefaultBaseCurrency)
				assert.False(t, cfg.RateLimitEnabled)
				assert.Equal(t, 2*time.Minute, cfg.RateLimitWindow)
				assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.TrustedProxies)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()
			require.NoError(t, err)
			tt.expected(t, cfg)
		})
	}
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{"unknown key placement", map[string]string{"EXCHANGE_RATE_API_KEY_PLACEMENT": "query"}},
		{"zero timeout", map[string]string{"EXCHANGE_RATE_API_TIMEOUT": "0s"}},
		{"malformed timeout", map[string]string{"EXCHANGE_RATE_API_TIMEOUT": "soon"}},
		{"long base currency", map[string]string{"DEFAULT_BASE_CURRENCY": "DOLLAR"}},
		{"bad trusted proxy", map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8,proxy.internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

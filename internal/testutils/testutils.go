package testutils

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dalfonso89/currency-converter/internal/config"
	"github.com/dalfonso89/currency-converter/internal/logger"
	"github.com/dalfonso89/currency-converter/internal/models"
)

// MockLogger creates a debug logger that discards its output
func MockLogger() *logrus.Logger {
	return logger.NewWithOutput("debug", io.Discard)
}

// MockConfig creates a configuration pointing the provider at providerURL
func MockConfig(providerURL string) *config.Config {
	return &config.Config{
		Port:     "8081",
		LogLevel: "debug",

		Provider: config.RateProvider{
			Name:         "test-provider",
			BaseURL:      providerURL,
			APIKey:       "test-api-key",
			KeyPlacement: config.KeyInPath,
			Timeout:      5 * time.Second,
		},
		DefaultBaseCurrency:   "USD",
		MaxConcurrentRequests: 4,

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,
		RateLimitBurst:    10,
	}
}

// MockRateTable returns the USD table used throughout the tests
func MockRateTable() models.RateTable {
	return models.RateTable{
		Base:        "USD",
		Rates:       map[string]float64{"USD": 1.0, "KES": 140.0, "EUR": 0.9},
		LastUpdated: time.Unix(MockUpdateUnix, 0).UTC(),
		Provider:    "test-provider",
	}
}

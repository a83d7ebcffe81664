package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Key placements supported by the rate provider
const (
	KeyInPath   = "path"
	KeyInHeader = "header"
)

// RateProvider describes the single exchange rate API the converter talks to
type RateProvider struct {
	Name         string        `envconfig:"NAME" default:"exchangerate-api"`
	BaseURL      string        `envconfig:"BASE_URL" default:"https://v6.exchangerate-api.com/v6"`
	APIKey       string        `envconfig:"KEY"`
	KeyPlacement string        `envconfig:"KEY_PLACEMENT" default:"path"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// Config holds all configuration for the application
type Config struct {
	Port     string `envconfig:"PORT" default:"8081"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Provider              RateProvider `envconfig:"EXCHANGE_RATE_API"`
	DefaultBaseCurrency   string       `envconfig:"DEFAULT_BASE_CURRENCY" default:"USD"`
	MaxConcurrentRequests int          `envconfig:"MAX_CONCURRENT_REQUESTS" default:"4"`

	// Rate limiting
	RateLimitEnabled  bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s"`
	RateLimitBurst    int           `envconfig:"RATE_LIMIT_BURST" default:"10"`

	// Peers (IPs or CIDRs) whose X-Forwarded-For is believed; empty trusts none
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// Load loads configuration from environment variables, reading an optional .env first
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configuration Config
	if err := envconfig.Process("", &configuration); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	configuration.DefaultBaseCurrency = strings.ToUpper(strings.TrimSpace(configuration.DefaultBaseCurrency))
	configuration.Provider.KeyPlacement = strings.ToLower(strings.TrimSpace(configuration.Provider.KeyPlacement))
	configuration.Provider.BaseURL = strings.TrimRight(configuration.Provider.BaseURL, "/")
	for i, proxy := range configuration.TrustedProxies {
		configuration.TrustedProxies[i] = strings.TrimSpace(proxy)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate reports the first setting that would make the converter unusable
func (c *Config) Validate() error {
	switch {
	case c.Provider.BaseURL == "":
		return fmt.Errorf("EXCHANGE_RATE_API_BASE_URL must not be empty")
	case c.Provider.KeyPlacement != KeyInPath && c.Provider.KeyPlacement != KeyInHeader:
		return fmt.Errorf("EXCHANGE_RATE_API_KEY_PLACEMENT must be %q or %q, got %q", KeyInPath, KeyInHeader, c.Provider.KeyPlacement)
	case c.Provider.Timeout <= 0:
		return fmt.Errorf("EXCHANGE_RATE_API_TIMEOUT must be positive, got %s", c.Provider.Timeout)
	case len(c.DefaultBaseCurrency) != 3:
		return fmt.Errorf("DEFAULT_BASE_CURRENCY must be a 3-letter code, got %q", c.DefaultBaseCurrency)
	case c.MaxConcurrentRequests < 0:
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must not be negative")
	}

	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES entry %q is neither an IP nor a CIDR", proxy)
		}
	}
	return nil
}

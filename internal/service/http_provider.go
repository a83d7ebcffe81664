package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dalfonso89/currency-converter/internal/config"
	"github.com/dalfonso89/currency-converter/internal/models"
)

// maxBodyBytes bounds how much of a provider response is read
const maxBodyBytes = 1 << 20

// RateProvider fetches a fresh rate table for a base currency
type RateProvider interface {
	Name() string
	FetchRates(ctx context.Context, baseCurrency string) (models.RateTable, error)
}

// HTTPRateProvider implements RateProvider against the exchangerate-api v6 REST API
type HTTPRateProvider struct {
	configuration config.RateProvider
	defaultBase   string
	logger        *logrus.Logger
	httpClient    *http.Client
}

// NewHTTPRateProvider creates a provider; defaultBase is used when FetchRates gets no base
func NewHTTPRateProvider(configuration config.RateProvider, defaultBase string, logger *logrus.Logger) *HTTPRateProvider {
	timeout := configuration.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if defaultBase == "" {
		defaultBase = "USD"
	}
	configuration.BaseURL = strings.TrimRight(configuration.BaseURL, "/")
	return &HTTPRateProvider{
		configuration: configuration,
		defaultBase:   models.NormalizeCode(defaultBase),
		logger:        logger,
		httpClient: &http.Client{
			Timeout: timeout,
			// FetchTables may hit the same host several times at once
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the provider name
func (provider *HTTPRateProvider) Name() string {
	return provider.configuration.Name
}

// FetchRates issues one GET for baseCurrency and returns the parsed table.
// Every failure is reported as a *RateFetchError.
func (provider *HTTPRateProvider) FetchRates(ctx context.Context, baseCurrency string) (models.RateTable, error) {
	baseCurrency = models.NormalizeCode(baseCurrency)
	if baseCurrency == "" {
		baseCurrency = provider.defaultBase
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.buildURL(baseCurrency), nil)
	if err != nil {
		return models.RateTable{}, &RateFetchError{Base: baseCurrency, Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	request.Header.Set("Accept", "application/json")
	if provider.configuration.KeyPlacement == config.KeyInHeader && provider.configuration.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+provider.configuration.APIKey)
	}

	provider.logger.WithFields(logrus.Fields{
		"provider": provider.Name(),
		"base":     baseCurrency,
	}).Debug("Fetching exchange rates")

	response, err := provider.httpClient.Do(request)
	if err != nil {
		return models.RateTable{}, &RateFetchError{Base: baseCurrency, Cause: provider.redact(err)}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodyBytes))
	if err != nil {
		return models.RateTable{}, &RateFetchError{Base: baseCurrency, StatusCode: response.StatusCode, Cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	var payload models.ProviderPayload
	decodeErr := json.Unmarshal(body, &payload)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		// error bodies usually still carry an error-type
		return models.RateTable{}, &RateFetchError{Base: baseCurrency, StatusCode: response.StatusCode, ProviderMessage: payload.ErrorType}
	}
	if decodeErr != nil {
		return models.RateTable{}, &RateFetchError{Base: baseCurrency, StatusCode: response.StatusCode, Cause: fmt.Errorf("failed to parse response: %w", decodeErr)}
	}

	return provider.toRateTable(baseCurrency, payload)
}

func (provider *HTTPRateProvider) toRateTable(baseCurrency string, payload models.ProviderPayload) (models.RateTable, error) {
	if payload.Result != "success" {
		message := payload.ErrorType
		if message == "" {
			message = "unknown-error"
		}
		return models.RateTable{}, &RateFetchError{Base: baseCurrency, ProviderMessage: message}
	}
	if len(payload.ConversionRates) == 0 {
		return models.RateTable{}, &RateFetchError{Base: baseCurrency, Cause: errors.New("response carried no conversion rates")}
	}

	tableBase := models.NormalizeCode(payload.BaseCode)
	if tableBase == "" {
		tableBase = baseCurrency
	}

	rates := make(map[string]float64, len(payload.ConversionRates))
	for code, rate := range payload.ConversionRates {
		rates[models.NormalizeCode(code)] = rate
	}

	var lastUpdated time.Time
	if payload.TimeLastUpdateUnix > 0 {
		lastUpdated = time.Unix(payload.TimeLastUpdateUnix, 0).UTC()
	}

	return models.RateTable{
		Base:        tableBase,
		Rates:       rates,
		LastUpdated: lastUpdated,
		Provider:    provider.Name(),
	}, nil
}

// buildURL places the API key in the path unless it travels in a header
func (provider *HTTPRateProvider) buildURL(baseCurrency string) string {
	baseURL := provider.configuration.BaseURL
	code := url.PathEscape(baseCurrency)

	if provider.configuration.KeyPlacement == config.KeyInHeader || provider.configuration.APIKey == "" {
		return fmt.Sprintf("%s/latest/%s", baseURL, code)
	}
	return fmt.Sprintf("%s/%s/latest/%s", baseURL, url.PathEscape(provider.configuration.APIKey), code)
}

// redact keeps path-embedded keys out of transport errors, which quote the URL
func (provider *HTTPRateProvider) redact(err error) error {
	var urlErr *url.Error
	if provider.configuration.APIKey == "" || !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL = strings.Replace(urlErr.URL, "/"+url.PathEscape(provider.configuration.APIKey)+"/", "/REDACTED/", 1)
	return &redacted
}

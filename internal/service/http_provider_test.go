package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalfonso89/currency-converter/internal/config"
	"github.com/dalfonso89/currency-converter/internal/testutils"
)

func newTestProvider(baseURL string, placement string) *HTTPRateProvider {
	return NewHTTPRateProvider(config.RateProvider{
		Name:         "test-provider",
		BaseURL:      baseURL,
		APIKey:       "test-api-key",
		KeyPlacement: placement,
		Timeout:      2 * time.Second,
	}, "USD", testutils.MockLogger())
}

func TestHTTPRateProvider_buildURL(t *testing.T) {
	tests := []struct {
		name      string
		placement string
		apiKey    string
		base      string
		expected  string
	}{
		{"key in path", config.KeyInPath, "abc123", "USD", "https://v6.example.com/v6/abc123/latest/USD"},
		{"key in header", config.KeyInHeader, "abc123", "KES", "https://v6.example.com/v6/latest/KES"},
		{"no key", config.KeyInPath, "", "EUR", "https://v6.example.com/v6/latest/EUR"},
		{"escaped base", config.KeyInPath, "abc123", "U/D", "https://v6.example.com/v6/abc123/latest/U%2FD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewHTTPRateProvider(config.RateProvider{
				BaseURL:      "https://v6.example.com/v6/",
				APIKey:       tt.apiKey,
				KeyPlacement: tt.placement,
			}, "USD", testutils.MockLogger())

			assert.Equal(t, tt.expected, provider.buildURL(tt.base))
		})
	}
}

func TestHTTPRateProvider_FetchRates(t *testing.T) {
	mockServer := testutils.NewMockRateServer()
	defer mockServer.Close()

	provider := newTestProvider(mockServer.URL(), config.KeyInPath)

	table, err := provider.FetchRates(context.Background(), "usd")
	require.NoError(t, err)

	assert.Equal(t, "USD", table.Base)
	assert.Equal(t, "test-provider", table.Provider)
	assert.Equal(t, 140.0, table.Rates["KES"])
	assert.Equal(t, time.Unix(testutils.MockUpdateUnix, 0).UTC(), table.LastUpdated)
	assert.Equal(t, "/test-api-key/latest/USD", mockServer.LastPath())
	assert.Empty(t, mockServer.LastHeader("Authorization"))
	assert.Equal(t, int64(1), mockServer.Hits())
}

func TestHTTPRateProvider_FetchRatesKeyInHeader(t *testing.T) {
	mockServer := testutils.NewMockRateServer()
	defer mockServer.Close()

	provider := newTestProvider(mockServer.URL(), config.KeyInHeader)

	table, err := provider.FetchRates(context.Background(), "EUR")
	require.NoError(t, err)

	assert.Equal(t, "EUR", table.Base)
	assert.Equal(t, "/latest/EUR", mockServer.LastPath())
	assert.Equal(t, "Bearer test-api-key", mockServer.LastHeader("Authorization"))
}

func TestHTTPRateProvider_FetchRatesDefaultBase(t *testing.T) {
	mockServer := testutils.NewMockRateServer()
	defer mockServer.Close()

	provider := newTestProvider(mockServer.URL(), config.KeyInPath)

	table, err := provider.FetchRates(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "USD", table.Base)
	assert.Equal(t, "/test-api-key/latest/USD", mockServer.LastPath())
}

func TestHTTPRateProvider_FetchRatesNeverCaches(t *testing.T) {
	mockServer := testutils.NewMockRateServer()
	defer mockServer.Close()

	provider := newTestProvider(mockServer.URL(), config.KeyInPath)

	for i := 0; i < 3; i++ {
		_, err := provider.FetchRates(context.Background(), "USD")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), mockServer.Hits())
}

func TestHTTPRateProvider_FetchRatesFailures(t *testing.T) {
	tests := []struct {
		name            string
		setup           func(*testutils.MockRateServer)
		base            string
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "non 2xx status",
			setup:           func(m *testutils.MockRateServer) { m.FailWith(http.StatusForbidden, "invalid-key") },
			base:            "USD",
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "invalid-key",
		},
		{
			name:           "server error without payload detail",
			setup:          func(m *testutils.MockRateServer) { m.FailWith(http.StatusBadGateway, "") },
			base:           "USD",
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:            "provider reported error",
			setup:           func(m *testutils.MockRateServer) {},
			base:            "ZZZ",
			expectedMessage: "unsupported-code",
		},
		{
			name:           "malformed body",
			setup:          func(m *testutils.MockRateServer) { m.RespondRaw("<html>not json</html>") },
			base:           "USD",
			expectedStatus: http.StatusOK,
		},
		{
			name:  "success without rates",
			setup: func(m *testutils.MockRateServer) { m.RespondRaw(`{"result":"success","conversion_rates":{}}`) },
			base:  "USD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockServer := testutils.NewMockRateServer()
			defer mockServer.Close()
			tt.setup(mockServer)

			provider := newTestProvider(mockServer.URL(), config.KeyInPath)
			table, err := provider.FetchRates(context.Background(), tt.base)

			var fetchErr *RateFetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.base, fetchErr.Base)
			assert.Equal(t, tt.expectedStatus, fetchErr.StatusCode)
			assert.Equal(t, tt.expectedMessage, fetchErr.ProviderMessage)
			assert.Nil(t, table.Rates)
		})
	}
}

func TestHTTPRateProvider_FetchRatesConnectionFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedURL := "http://" + listener.Addr().String()
	require.NoError(t, listener.Close())

	provider := newTestProvider(closedURL, config.KeyInPath)
	table, err := provider.FetchRates(context.Background(), "USD")

	var fetchErr *RateFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.StatusCode)
	assert.Error(t, fetchErr.Cause)
	assert.NotContains(t, err.Error(), "test-api-key")
	assert.Contains(t, err.Error(), "REDACTED")
	assert.Empty(t, table.Rates)
	assert.Equal(t, ErrorTypeRateFetch, Classify(err))
}

func TestHTTPRateProvider_FetchRatesContextCancelled(t *testing.T) {
	mockServer := testutils.NewMockRateServer()
	defer mockServer.Close()
	mockServer.Delay(time.Second)

	provider := newTestProvider(mockServer.URL(), config.KeyInPath)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := provider.FetchRates(ctx, "USD")

	var fetchErr *RateFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

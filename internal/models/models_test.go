package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateTable_Rate(t *testing.T) {
	table := RateTable{
		Base:        "USD",
		Rates:       map[string]float64{"KES": 140.0, "EUR": 0.9},
		LastUpdated: time.Unix(1700000000, 0).UTC(),
	}

	tests := []struct {
		name     string
		code     string
		wantRate float64
		wantOK   bool
	}{
		{"listed code", "KES", 140.0, true},
		{"lower case code", "eur", 0.9, true},
		{"padded code", " KES ", 140.0, true},
		{"base missing from rates", "USD", 1.0, true},
		{"unknown code", "ZZZ", 0, false},
		{"empty code", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := table.Rate(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRate, rate)
		})
	}
}

func TestRateTable_RatePrefersListedBase(t *testing.T) {
	table := RateTable{Base: "USD", Rates: map[string]float64{"USD": 1.0001}}

	rate, ok := table.Rate("USD")
	require.True(t, ok)
	assert.Equal(t, 1.0001, rate)
}

func TestProviderPayload_Decode(t *testing.T) {
	body := `{
		"result": "success",
		"base_code": "USD",
		"time_last_update_unix": 1700000000,
		"time_last_update_utc": "Tue, 14 Nov 2023 22:13:20 +0000",
		"conversion_rates": {"USD": 1, "KES": 140.5}
	}`

	var payload ProviderPayload
	require.NoError(t, json.Unmarshal([]byte(body), &payload))

	assert.Equal(t, "success", payload.Result)
	assert.Equal(t, "USD", payload.BaseCode)
	assert.Equal(t, int64(1700000000), payload.TimeLastUpdateUnix)
	assert.Equal(t, 140.5, payload.ConversionRates["KES"])
	assert.Empty(t, payload.ErrorType)
}

func TestProviderPayload_DecodeError(t *testing.T) {
	var payload ProviderPayload
	require.NoError(t, json.Unmarshal([]byte(`{"result":"error","error-type":"invalid-key"}`), &payload))

	assert.Equal(t, "error", payload.Result)
	assert.Equal(t, "invalid-key", payload.ErrorType)
	assert.Nil(t, payload.ConversionRates)
}

package models

import (
	"strings"
	"time"
)

// RateTable maps currency codes to rates relative to Base.
// The base currency's own rate is 1.0 whether or not it appears in Rates.
type RateTable struct {
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
	LastUpdated time.Time          `json:"last_updated"`
	Provider    string             `json:"provider"`
}

// Rate returns the rate for code and whether the table knows it
func (table RateTable) Rate(code string) (float64, bool) {
	code = NormalizeCode(code)
	if rate, ok := table.Rates[code]; ok {
		return rate, true
	}
	if code != "" && code == NormalizeCode(table.Base) {
		return 1.0, true
	}
	return 0, false
}

// NormalizeCode trims and upper-cases a currency code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ConversionRequest is a single amount to convert between two codes
type ConversionRequest struct {
	Amount float64 `json:"amount"`
	From   string  `json:"from" validate:"required"`
	To     string  `json:"to" validate:"required"`
}

// ConversionResult is a ConversionRequest together with its outcome.
// Err is set, and Converted is zero, when the request could not be converted.
type ConversionResult struct {
	ConversionRequest
	Rate      float64 `json:"rate"`
	Converted float64 `json:"converted"`
	Err       error   `json:"-"`
}

// ProviderPayload is the exchangerate-api v6 "latest" response body
type ProviderPayload struct {
	Result             string             `json:"result"`
	ErrorType          string             `json:"error-type,omitempty"`
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	TimeLastUpdateUTC  string             `json:"time_last_update_utc"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
}

type ConvertResponse struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Amount      float64   `json:"amount"`
	Rate        float64   `json:"rate"`
	Converted   float64   `json:"converted"`
	Display     string    `json:"display"`
	Base        string    `json:"base"`
	LastUpdated time.Time `json:"last_updated"`
}

type BatchConvertRequest struct {
	Base        string              `json:"base" validate:"omitempty,len=3,alpha"`
	Conversions []ConversionRequest `json:"conversions" validate:"required,min=1,max=100,dive"`
}

type BatchEntry struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Rate      float64 `json:"rate"`
	Converted float64 `json:"converted"`
	Display   string  `json:"display,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type BatchConvertResponse struct {
	Base        string       `json:"base"`
	LastUpdated time.Time    `json:"last_updated"`
	Results     []BatchEntry `json:"results"`
	Failed      int          `json:"failed"`
}

type TablesResponse struct {
	Tables []RateTable `json:"tables"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthCheck represents the health check response
type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

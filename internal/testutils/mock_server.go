package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalfonso89/currency-converter/internal/models"
)

// MockUpdateUnix is the time_last_update_unix served by MockRateServer
const MockUpdateUnix int64 = 1700000000

// MockRateServer serves exchangerate-api v6 "latest" payloads.
// It accepts both /latest/{BASE} and /{key}/latest/{BASE}.
type MockRateServer struct {
	server *httptest.Server
	hits   atomic.Int64

	mutex       sync.Mutex
	rates       map[string]map[string]float64
	failStatus  int
	failType    string
	rawBody     string
	delay       time.Duration
	lastPath    string
	lastHeaders http.Header
}

// NewMockRateServer starts a server with USD, EUR and KES tables
func NewMockRateServer() *MockRateServer {
	mock := &MockRateServer{
		rates: map[string]map[string]float64{
			"USD": {"USD": 1.0, "KES": 140.0, "EUR": 0.9, "GBP": 0.8},
			"EUR": {"EUR": 1.0, "USD": 1.1, "KES": 155.0},
			"KES": {"KES": 1.0, "USD": 0.0071, "EUR": 0.0065},
		},
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockRateServer) handler(w http.ResponseWriter, r *http.Request) {
	m.hits.Add(1)

	m.mutex.Lock()
	m.lastPath = r.URL.Path
	m.lastHeaders = r.Header.Clone()
	failStatus, failType, rawBody, delay := m.failStatus, m.failType, m.rawBody, m.delay
	m.mutex.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if rawBody != "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rawBody))
		return
	}
	if failStatus != 0 {
		w.WriteHeader(failStatus)
		_ = json.NewEncoder(w).Encode(models.ProviderPayload{Result: "error", ErrorType: failType})
		return
	}

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-2] != "latest" {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(models.ProviderPayload{Result: "error", ErrorType: "not-found"})
		return
	}
	base := segments[len(segments)-1]

	m.mutex.Lock()
	rates, found := m.rates[base]
	m.mutex.Unlock()
	if !found {
		// the real API answers unknown bases with HTTP 200 and an error result
		_ = json.NewEncoder(w).Encode(models.ProviderPayload{Result: "error", ErrorType: "unsupported-code"})
		return
	}

	_ = json.NewEncoder(w).Encode(models.ProviderPayload{
		Result:             "success",
		BaseCode:           base,
		TimeLastUpdateUnix: MockUpdateUnix,
		TimeLastUpdateUTC:  time.Unix(MockUpdateUnix, 0).UTC().Format(time.RFC1123Z),
		ConversionRates:    rates,
	})
}

// URL returns the mock server URL
func (m *MockRateServer) URL() string {
	return m.server.URL
}

// Close closes the mock server
func (m *MockRateServer) Close() {
	m.server.Close()
}

// Hits returns how many requests the server has received
func (m *MockRateServer) Hits() int64 {
	return m.hits.Load()
}

// LastPath returns the path of the most recent request
func (m *MockRateServer) LastPath() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.lastPath
}

// LastHeader returns a header of the most recent request
func (m *MockRateServer) LastHeader(name string) string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.lastHeaders.Get(name)
}

// SetRates replaces the table served for base
func (m *MockRateServer) SetRates(base string, rates map[string]float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rates[base] = rates
}

// FailWith makes every request answer with status and an error-type payload
func (m *MockRateServer) FailWith(status int, errorType string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failStatus = status
	m.failType = errorType
}

// RespondRaw makes every request answer 200 with body verbatim
func (m *MockRateServer) RespondRaw(body string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rawBody = body
}

// Delay holds every response for d
func (m *MockRateServer) Delay(d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.delay = d
}

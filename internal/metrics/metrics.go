package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConverterMetrics holds the counters and histograms for rate fetches and conversions
type ConverterMetrics struct {
	Registry *prometheus.Registry

	RateFetchesTotal  *prometheus.CounterVec
	RateFetchDuration *prometheus.HistogramVec
	ConversionsTotal  *prometheus.CounterVec
	BatchSize         prometheus.Histogram
}

// NewConverterMetrics registers the converter metrics on a fresh registry
func NewConverterMetrics() *ConverterMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &ConverterMetrics{
		Registry: registry,

		RateFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_fetches_total",
				Help: "Rate table fetches by provider, base currency and outcome",
			},
			[]string{"provider", "base", "outcome"},
		),

		RateFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_fetch_duration_seconds",
				Help:    "Round trip time of rate table fetches",
				Buckets: prometheus.ExponentialBuckets(0.025, 2, 9), // 25ms .. 6.4s
			},
			[]string{"provider"},
		),

		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversions_total",
				Help: "Conversions by outcome",
			},
			[]string{"outcome"},
		),

		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "conversion_batch_size",
				Help:    "Number of requests per batch conversion",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
	}
}

// ObserveFetch records one rate table fetch
func (m *ConverterMetrics) ObserveFetch(provider, base, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RateFetchesTotal.WithLabelValues(provider, base, outcome).Inc()
	m.RateFetchDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveConversion records one conversion outcome
func (m *ConverterMetrics) ObserveConversion(outcome string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBatch records the size of one batch
func (m *ConverterMetrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
}

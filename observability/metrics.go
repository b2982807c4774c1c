package observability

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics records RPC activity against the feed registry.
type RegistryMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	feeQuotes *prometheus.CounterVec
}

var (
	registryMetricsOnce sync.Once
	registryMetrics     *RegistryMetrics
)

// Metrics returns the lazily-initialised registry metrics.
func Metrics() *RegistryMetrics {
	registryMetricsOnce.Do(func() {
		registryMetrics = &RegistryMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "feedregistry",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "feedregistry",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "feedregistry",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			feeQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "feedregistry",
				Subsystem: "fees",
				Name:      "quoted_wei_total",
				Help:      "Cumulative wei quoted for feed fetches, by method.",
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			registryMetrics.requests,
			registryMetrics.errors,
			registryMetrics.latency,
			registryMetrics.feeQuotes,
		)
	})
	return registryMetrics
}

// Observe records one request outcome. code is the JSON-RPC error code, or
// zero on success.
func (m *RegistryMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveFeeQuote accumulates a quoted fee amount. Amounts beyond float64
// range saturate rather than panic.
func (m *RegistryMetrics) ObserveFeeQuote(method string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.feeQuotes.WithLabelValues(method).Add(value)
}

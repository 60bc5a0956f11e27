package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeLookupError    = "lookup_error"
	OutcomeTransportError = "transport_error"
)

// Metrics holds the service collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Lookups              *prometheus.CounterVec
	LookupDuration       prometheus.Histogram
	HistoryEntries       prometheus.Gauge
	HistoryWriteFailures prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_lookups_total",
			Help: "Weather lookups by outcome.",
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_lookup_duration_seconds",
			Help:    "Duration of the full geocode, current and forecast pipeline.",
			Buckets: prometheus.DefBuckets,
		}),
		HistoryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "history_entries",
			Help: "Number of entries in the search history.",
		}),
		HistoryWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "history_write_failures_total",
			Help: "Search history writes that failed.",
		}),
	}

	m.registry.MustRegister(
		m.Lookups,
		m.LookupDuration,
		m.HistoryEntries,
		m.HistoryWriteFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLookup(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
	m.LookupDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SetHistoryEntries(n int) {
	if m == nil {
		return
	}
	m.HistoryEntries.Set(float64(n))
}

func (m *Metrics) IncHistoryWriteFailures() {
	if m == nil {
		return
	}
	m.HistoryWriteFailures.Inc()
}

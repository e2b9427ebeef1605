package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "refcache"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics holds the Prometheus collectors of a cache.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	lookups       *prometheus.CounterVec
	entries       prometheus.Gauge
	invalidations prometheus.Counter
	joins         prometheus.Counter
	loads         *prometheus.HistogramVec
	persistErrors *prometheus.CounterVec
}

// NewMetrics creates the cache collectors and registers them with reg.
// A nil reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "entries",
			Help:      "Number of entries currently stored.",
		}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invalidated_entries_total",
			Help:      "Entries removed by invalidation or clear.",
		}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "load_joins_total",
			Help:      "Callers that joined a load already in flight.",
		}),
		loads: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "load_duration_seconds",
			Help:      "Producer run time by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "persist_errors_total",
			Help:      "Swallowed tier read and write failures.",
		}, []string{"tier"}),
	}

	if reg != nil {
		reg.MustRegister(m.lookups, m.entries, m.invalidations, m.joins, m.loads, m.persistErrors)
	}
	return m
}

func (m *Metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) setEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}

func (m *Metrics) invalidated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.Add(float64(n))
}

func (m *Metrics) joined() {
	if m == nil {
		return
	}
	m.joins.Inc()
}

func (m *Metrics) loaded(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) persistFailed(s Strategy) {
	if m == nil {
		return
	}
	m.persistErrors.WithLabelValues(s.String()).Inc()
}

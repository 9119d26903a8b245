package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provide cache level metrics.
type Metrics struct {
	Entries      *prometheus.GaugeVec
	Hits         *prometheus.CounterVec
	Creates      *prometheus.CounterVec
	CreateErrors *prometheus.CounterVec
}

// NewMetrics creates a new metrics instance, the instance shall be
// assigned to DefaultMetrics before any caches are made.
func NewMetrics(namespace string) *Metrics {
	labels := []string{"cache"}
	return &Metrics{
		Entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of entries in the cache",
		}, labels),
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Lookups served from the cache",
		}, labels),
		Creates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "creates_total",
			Help:      "Entries created on a cache miss",
		}, labels),
		CreateErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "create_errors_total",
			Help:      "Cache misses where creating the entry failed",
		}, labels),
	}
}

// DefaultMetrics specifies metrics used for new caches.
var DefaultMetrics = (*Metrics)(nil)

// Collectors returns all prometheus metrics as collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.Entries,
		m.Hits,
		m.Creates,
		m.CreateErrors,
	}
}

func (m *Metrics) hit(name string) {
	if m == nil {
		return
	}
	m.Hits.WithLabelValues(name).Inc()
}

func (m *Metrics) created(name string, entries int) {
	if m == nil {
		return
	}
	m.Creates.WithLabelValues(name).Inc()
	m.Entries.WithLabelValues(name).Set(float64(entries))
}

func (m *Metrics) createError(name string) {
	if m == nil {
		return
	}
	m.CreateErrors.WithLabelValues(name).Inc()
}

func (m *Metrics) setEntries(name string, entries int) {
	if m == nil {
		return
	}
	m.Entries.WithLabelValues(name).Set(float64(entries))
}

package drive

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK         = "ok"
	resultSuppressed = "suppressed"
	resultError      = "error"
)

// Metrics provide Executor level metrics.
type Metrics struct {
	Calls       *prometheus.CounterVec
	Suppressed  *prometheus.CounterVec
	WaitSeconds prometheus.Histogram
	WindowCalls prometheus.Gauge
}

// NewMetrics creates a new metrics instance, the instance shall be assigned to
// DefaultMetrics before any executors are made.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "calls_total",
			Help:      "Drive API calls by result (ok, suppressed or error)",
		}, []string{"result"}),
		Suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "suppressed_errors_total",
			Help:      "Drive API HTTP errors turned into empty results by status code",
		}, []string{"code"}),
		WaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "pacer_wait_seconds",
			Help:      "Time spent waiting for the pacer before a call",
			Buckets:   []float64{.001, .01, .1, 1, 10, 100},
		}),
		WindowCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "pacer_window_calls",
			Help:      "Calls inside the pacer window after the last admission",
		}),
	}
}

// DefaultMetrics specifies metrics used for new Executors.
var DefaultMetrics = (*Metrics)(nil)

// Collectors returns all prometheus metrics as collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.Calls,
		m.Suppressed,
		m.WaitSeconds,
		m.WindowCalls,
	}
}

func (m *Metrics) waited(d time.Duration, inWindow int) {
	if m == nil {
		return
	}
	m.WaitSeconds.Observe(d.Seconds())
	m.WindowCalls.Set(float64(inWindow))
}

func (m *Metrics) result(result string) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(result).Inc()
}

func (m *Metrics) suppressed(code int) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(resultSuppressed).Inc()
	m.Suppressed.WithLabelValues(strconv.Itoa(code)).Inc()
}

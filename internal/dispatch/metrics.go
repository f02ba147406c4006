package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the dispatcher's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	cycles     *prometheus.CounterVec
	fired      *prometheus.CounterVec
	failures   *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbot",
			Subsystem: "dispatch",
			Name:      "cycles_total",
			Help:      "Message cycles by terminal status.",
		}, []string{"status"}),
		fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbot",
			Subsystem: "dispatch",
			Name:      "branches_fired_total",
			Help:      "Branch callbacks invoked, by branch id.",
		}, []string{"branch"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbot",
			Subsystem: "dispatch",
			Name:      "callback_failures_total",
			Help:      "Branch callbacks that returned an error or panicked.",
		}, []string{"branch"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbot",
			Subsystem: "dispatch",
			Name:      "deliveries_total",
			Help:      "Envelope deliveries by method and result.",
		}, []string{"method", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sbot",
			Subsystem: "dispatch",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent processing one message cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.cycles, m.fired, m.failures, m.deliveries, m.duration)
	}
	return m
}

func (m *Metrics) observeCycle(status Status, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(string(status)).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeFired(branch string) {
	if m == nil {
		return
	}
	m.fired.WithLabelValues(branch).Inc()
}

func (m *Metrics) observeFailure(branch string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(branch).Inc()
}

func (m *Metrics) observeDelivery(method string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveries.WithLabelValues(method, result).Inc()
}

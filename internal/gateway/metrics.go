package gateway

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks gateway-level counters using atomic operations for lock-free concurrency.
type Metrics struct {
	messages    atomic.Int64
	envelopes   atomic.Int64
	errors      atomic.Int64
	connections atomic.Int64
}

// RecordMessage records an inbound message pushed to the bot.
func (m *Metrics) RecordMessage() {
	m.messages.Add(1)
}

// RecordEnvelope records an envelope handed to a client.
func (m *Metrics) RecordEnvelope() {
	m.envelopes.Add(1)
}

// RecordError records a processing or delivery error.
func (m *Metrics) RecordError() {
	m.errors.Add(1)
}

// RecordConnection adjusts the number of open WebSocket connections.
func (m *Metrics) RecordConnection(delta int64) {
	m.connections.Add(delta)
}

// Snapshot returns a consistent point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Messages:    m.messages.Load(),
		Envelopes:   m.envelopes.Load(),
		Errors:      m.errors.Load(),
		Connections: m.connections.Load(),
	}
}

// Register exposes the counters on reg. Registering the same Metrics twice
// is not an error.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "sbot", Subsystem: "gateway", Name: "messages_total",
			Help: "Inbound messages pushed to the bot by the gateway.",
		}, func() float64 { return float64(m.messages.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "sbot", Subsystem: "gateway", Name: "envelopes_total",
			Help: "Envelopes delivered to gateway clients.",
		}, func() float64 { return float64(m.envelopes.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "sbot", Subsystem: "gateway", Name: "errors_total",
			Help: "Gateway processing and delivery errors.",
		}, func() float64 { return float64(m.errors.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sbot", Subsystem: "gateway", Name: "websocket_connections",
			Help: "Open WebSocket connections.",
		}, func() float64 { return float64(m.connections.Load()) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	Messages    int64 `json:"messages"`
	Envelopes   int64 `json:"envelopes"`
	Errors      int64 `json:"errors"`
	Connections int64 `json:"connections"`
}

package wsserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus collectors for the connection
// lifecycle. A nil *serverMetrics disables collection; all record methods
// are nil-safe.
type serverMetrics struct {
	connectionsTotal   prometheus.Counter
	activeClients      prometheus.Gauge
	handshakeFailures  prometheus.Counter
	misconfigurations  prometheus.Counter
	registryViolations prometheus.Counter
	connectionSeconds  prometheus.Histogram
}

func newServerMetrics(reg prometheus.Registerer, namespace string) *serverMetrics {
	if reg == nil {
		return nil
	}
	if namespace == "" {
		namespace = "wsgate"
	}

	factory := promauto.With(reg)

	return &serverMetrics{
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Connections handed to the WebSocket layer by the accepting server.",
		}),
		activeClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_clients",
			Help:      "Sessions currently enrolled in the client registry.",
		}),
		handshakeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "handshake_failures_total",
			Help:      "Opening handshakes that failed or timed out.",
		}),
		misconfigurations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "misconfigured_connections_total",
			Help:      "Connections abandoned because no usable application callback was registered.",
		}),
		registryViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "registry_violations_total",
			Help:      "Registry erase operations that did not remove exactly one session.",
		}),
		connectionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connection_duration_seconds",
			Help:      "Wall-clock lifetime of handled connections.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
}

func (m *serverMetrics) recordConnection() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
}

func (m *serverMetrics) recordEnroll() {
	if m == nil {
		return
	}
	m.activeClients.Inc()
}

func (m *serverMetrics) recordDeregister() {
	if m == nil {
		return
	}
	m.activeClients.Dec()
}

func (m *serverMetrics) recordHandshakeFailure() {
	if m == nil {
		return
	}
	m.handshakeFailures.Inc()
}

func (m *serverMetrics) recordMisconfiguration() {
	if m == nil {
		return
	}
	m.misconfigurations.Inc()
}

func (m *serverMetrics) recordRegistryViolation() {
	if m == nil {
		return
	}
	m.registryViolations.Inc()
}

func (m *serverMetrics) recordDuration(seconds float64) {
	if m == nil {
		return
	}
	m.connectionSeconds.Observe(seconds)
}

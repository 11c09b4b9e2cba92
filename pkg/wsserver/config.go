package wsserver

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultHandshakeTimeout bounds the opening handshake of each connection.
const DefaultHandshakeTimeout = 3 * time.Second

// Config holds configuration for the WebSocket server.
type Config struct {
	// Host is the interface to bind. Default: "127.0.0.1".
	Host string

	// Port is the TCP port to listen on. Port 0 picks a free port.
	Port int

	// Backlog is the requested listen backlog, passed through to the
	// accepting server. Default: 5.
	Backlog int

	// MaxConnections caps simultaneously handled connections; the
	// accepting server rejects the excess before this layer is invoked.
	// Default: 32.
	MaxConnections int

	// Network selects the address family: "tcp", "tcp4" or "tcp6".
	// Default: "tcp".
	Network string

	// HandshakeTimeout bounds the opening handshake. A connection whose
	// upgrade does not complete in time is drained normally.
	// Default: DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// Logger receives all log output, including the error sink used for
	// handshake failures and application misconfiguration.
	// Default: slog.Default().
	Logger *slog.Logger

	// MetricsRegistry is the Prometheus registerer for server metrics.
	// nil disables metrics collection.
	MetricsRegistry prometheus.Registerer

	// MetricsNamespace is the namespace for metric names.
	// Default: "wsgate".
	MetricsNamespace string

	// TracerName names the OpenTelemetry tracer used for per-connection
	// spans. Default: "wsgate".
	TracerName string
}

// DefaultConfig returns a Config with sensible defaults. Metrics are
// disabled until a registry is supplied.
func DefaultConfig() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             8080,
		Backlog:          5,
		MaxConnections:   32,
		Network:          "tcp",
		HandshakeTimeout: DefaultHandshakeTimeout,
		MetricsNamespace: "wsgate",
		TracerName:       "wsgate",
	}
}

package wsserver

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wsgate-dev/wsgate/pkg/tcpserver"
	"github.com/wsgate-dev/wsgate/pkg/wsengine"
)

// Server accepts TCP connections and promotes each one to a WebSocket
// session. Configure the hooks and option switches before Start; call Stop
// before discarding the server so no worker outlives it.
type Server struct {
	tcp *tcpserver.Server

	handshakeTimeout time.Duration

	pongEnabled    atomic.Bool
	deflateEnabled atomic.Bool

	hookMu          sync.RWMutex
	onConnection    OnConnectionCallback
	onClientMessage OnClientMessageCallback

	clients *clientRegistry

	logger  *slog.Logger
	metrics *serverMetrics
	tracer  trace.Tracer
}

// New creates a Server with the given configuration.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.Host == "" {
			config.Host = defaults.Host
		}
		if config.Backlog == 0 {
			config.Backlog = defaults.Backlog
		}
		if config.MaxConnections == 0 {
			config.MaxConnections = defaults.MaxConnections
		}
		if config.Network == "" {
			config.Network = defaults.Network
		}
		if config.HandshakeTimeout == 0 {
			config.HandshakeTimeout = defaults.HandshakeTimeout
		}
		if config.MetricsNamespace == "" {
			config.MetricsNamespace = defaults.MetricsNamespace
		}
		if config.TracerName == "" {
			config.TracerName = defaults.TracerName
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		handshakeTimeout: config.HandshakeTimeout,
		clients:          newClientRegistry(),
		logger:           logger.With("component", "wsserver"),
		metrics:          newServerMetrics(config.MetricsRegistry, config.MetricsNamespace),
		tracer:           otel.Tracer(config.TracerName),
	}
	s.pongEnabled.Store(true)
	s.deflateEnabled.Store(true)

	s.tcp = tcpserver.New(&tcpserver.Config{
		Host:           config.Host,
		Port:           config.Port,
		Backlog:        config.Backlog,
		MaxConnections: config.MaxConnections,
		Network:        config.Network,
	}, logger)
	s.tcp.SetConnectionHandler(s.handleConnection)

	return s
}

// SetOnConnectionCallback installs or replaces the per-connection hook.
// When set, it takes precedence over the per-message hook. Replacement is
// not synchronized with in-flight connections; install hooks before Start.
func (s *Server) SetOnConnectionCallback(cb OnConnectionCallback) {
	s.hookMu.Lock()
	s.onConnection = cb
	s.hookMu.Unlock()
}

// SetOnClientMessageCallback installs or replaces the per-message hook.
func (s *Server) SetOnClientMessageCallback(cb OnClientMessageCallback) {
	s.hookMu.Lock()
	s.onClientMessage = cb
	s.hookMu.Unlock()
}

// EnablePong makes future sessions answer inbound pings. Connections whose
// configuration has already run are unaffected.
func (s *Server) EnablePong() {
	s.pongEnabled.Store(true)
}

// DisablePong stops future sessions from answering inbound pings.
func (s *Server) DisablePong() {
	s.pongEnabled.Store(false)
}

// DisablePerMessageDeflate withholds the permessage-deflate extension from
// future sessions.
func (s *Server) DisablePerMessageDeflate() {
	s.deflateEnabled.Store(false)
}

// Start binds the listening socket and begins accepting connections.
func (s *Server) Start() error {
	return s.tcp.Start()
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	return s.tcp.Addr()
}

// GetClients returns a snapshot of the currently connected sessions.
// The returned slice is independent of the live registry; sessions in it may
// wind down at any time. Only thread-safe session operations (such as Close
// or the send methods) may be invoked on them.
func (s *Server) GetClients() []*wsengine.Session {
	return s.clients.snapshot()
}

// GetConnectedClientsCount returns the number of currently enrolled sessions.
func (s *Server) GetConnectedClientsCount() int {
	return s.clients.size()
}

// Stop shuts the server down in order: it halts accepting, signals every
// live session to close (from a registry snapshot, so no session I/O happens
// under the registry mutex), then waits for all per-connection workers to
// drain and deregister. After Stop returns no worker is running and the
// registry is empty. Idempotent.
func (s *Server) Stop() {
	s.tcp.StopAcceptingConnections()

	for _, session := range s.clients.snapshot() {
		session.Close()
	}

	s.tcp.Stop()
}

package tcpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
)

// Sentinel errors for server lifecycle misuse.
var (
	// ErrNoHandler is returned by Start when no connection handler is set.
	ErrNoHandler = errors.New("tcpserver: no connection handler registered")

	// ErrAlreadyStarted is returned by Start when the server is running.
	ErrAlreadyStarted = errors.New("tcpserver: already started")
)

// Handler is invoked once per accepted connection, on a dedicated goroutine.
// The handler owns conn for its whole lifetime and must call
// state.SetTerminated() on every exit path.
type Handler func(conn net.Conn, state *ConnectionState, info *ConnectionInfo)

// Server accepts TCP connections and dispatches each one to a Handler.
type Server struct {
	config  *Config
	handler Handler

	mu       sync.Mutex
	listener net.Listener
	started  bool

	accepting  atomic.Bool
	active     atomic.Int64
	acceptDone chan struct{}
	workers    sync.WaitGroup

	logger *slog.Logger
}

// New creates a Server with the given configuration.
func New(config *Config, logger *slog.Logger) *Server {
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
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config: config,
		logger: logger.With("component", "tcpserver"),
	}
}

// SetConnectionHandler registers the per-connection handler.
// Must be called before Start.
func (s *Server) SetConnectionHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start binds the listening socket and launches the accept loop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handler == nil {
		return ErrNoHandler
	}
	if s.started {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen(s.config.Network, addr)
	if err != nil {
		return fmt.Errorf("tcpserver: listen %s %s: %w", s.config.Network, addr, err)
	}

	s.listener = ln
	s.started = true
	s.accepting.Store(true)
	s.acceptDone = make(chan struct{})

	s.logger.Info("listening", "address", ln.Addr().String())
	go s.acceptLoop(ln, s.acceptDone)

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ConnectionCount returns the number of connections currently being handled.
func (s *Server) ConnectionCount() int {
	return int(s.active.Load())
}

func (s *Server) acceptLoop(ln net.Listener, done chan struct{}) {
	defer close(done)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.accepting.Load() {
				return
			}
			s.logger.Error("accept failed", "error", err)
			return
		}

		if !s.accepting.Load() {
			conn.Close()
			return
		}

		if int(s.active.Load()) >= s.config.MaxConnections {
			s.logger.Error("too many connections, rejecting",
				"remote_addr", conn.RemoteAddr().String(),
				"max_connections", s.config.MaxConnections)
			conn.Close()
			continue
		}

		state := NewConnectionState()
		info := newConnectionInfo(conn)

		s.active.Add(1)
		s.workers.Add(1)
		go func(conn net.Conn, state *ConnectionState, info *ConnectionInfo) {
			defer s.workers.Done()
			defer s.active.Add(-1)
			defer conn.Close()

			s.handler(conn, state, info)
		}(conn, state, info)
	}
}

// StopAcceptingConnections closes the listening socket. Live connections and
// their workers are left untouched. Idempotent.
func (s *Server) StopAcceptingConnections() {
	if !s.accepting.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	ln := s.listener
	done := s.acceptDone
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	if done != nil {
		<-done
	}
}

// Stop halts accepting and waits for every per-connection worker to return.
// Idempotent; calling Stop on a server that never started is a no-op.
func (s *Server) Stop() {
	s.StopAcceptingConnections()
	s.workers.Wait()

	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	s.listener = nil
	s.mu.Unlock()

	if wasStarted {
		s.logger.Info("stopped")
	}
}

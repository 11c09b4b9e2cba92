package wsserver

import (
	"context"
	"net"
	"runtime/pprof"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wsgate-dev/wsgate/pkg/tcpserver"
)

// handleConnection is the per-connection entry point invoked by the
// accepting server on a dedicated worker goroutine. The worker is labeled
// with the connection identifier so it can be told apart in profiles.
func (s *Server) handleConnection(conn net.Conn, state *tcpserver.ConnectionState, info *tcpserver.ConnectionInfo) {
	labels := pprof.Labels("name", "WebSocketServer::"+state.ID())
	pprof.Do(context.Background(), labels, func(ctx context.Context) {
		s.handle(ctx, conn, state, info)
	})
}

// handle drives one connection from accept to teardown. Every exit path
// marks the connection state terminated; nothing escapes the worker.
func (s *Server) handle(ctx context.Context, conn net.Conn, state *tcpserver.ConnectionState, info *tcpserver.ConnectionInfo) {
	defer state.SetTerminated()

	_, span := s.tracer.Start(ctx, "wsserver.handle_connection",
		trace.WithAttributes(
			attribute.String("connection.id", state.ID()),
			attribute.String("net.peer.addr", info.RemoteAddr()),
		))
	defer span.End()

	start := time.Now()
	s.metrics.recordConnection()
	defer func() {
		s.metrics.recordDuration(time.Since(start).Seconds())
	}()

	session, ok := s.configureSession(state, info)
	if !ok {
		s.metrics.recordMisconfiguration()
		span.SetStatus(codes.Error, "application callback misconfigured")
		return
	}

	// Enroll before any session I/O so shutdown can always reach a
	// handshaking or running session through a registry snapshot.
	s.clients.insert(session)
	s.metrics.recordEnroll()

	result := session.ConnectToSocket(conn, s.handshakeTimeout)
	if result.Success {
		span.AddEvent("handshake complete")
		session.Run()
	} else {
		s.logger.Error("websocket handshake failed",
			"connection_id", state.ID(),
			"http_status", result.HTTPStatus,
			"error", result.Error)
		s.metrics.recordHandshakeFailure()
		span.SetStatus(codes.Error, result.Error)
	}

	// Drain: clear the per-message callback before deregistering so a
	// late dispatch from the session's own teardown cannot touch
	// connection-scoped state whose lifetime is about to end.
	session.SetOnMessageCallback(nil)

	if removed := s.clients.erase(session); removed != 1 {
		s.logger.Error("Cannot delete client",
			"connection_id", state.ID(),
			"removed", removed)
		s.metrics.recordRegistryViolation()
	}
	s.metrics.recordDeregister()
}

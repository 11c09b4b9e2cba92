package wsserver

import (
	"github.com/wsgate-dev/wsgate/pkg/tcpserver"
	"github.com/wsgate-dev/wsgate/pkg/wsengine"
)

// OnConnectionCallback is invoked once per accepted connection, before the
// opening handshake. It receives the fresh session and takes ownership of
// info. The callback MUST register a per-message callback on the session
// before returning, otherwise the connection is abandoned.
type OnConnectionCallback func(session *wsengine.Session, state *tcpserver.ConnectionState, info *tcpserver.ConnectionInfo)

// OnClientMessageCallback is invoked for every message a session delivers,
// on the connection's worker goroutine.
type OnClientMessageCallback func(state *tcpserver.ConnectionState, info *tcpserver.ConnectionInfo, session *wsengine.Session, msg *wsengine.Message)

// configureSession builds and configures a session for one connection:
// it resolves which application hook is in effect (OnConnection wins over
// OnClientMessage when both are set), wires it, then applies the server-wide
// switches. The option flags are read once here; later mutation affects only
// connections configured afterwards.
//
// Returns ok=false when the application is misconfigured; the appropriate
// developer-error lines have then already been logged and the connection
// must be abandoned without any session I/O.
func (s *Server) configureSession(state *tcpserver.ConnectionState, info *tcpserver.ConnectionInfo) (session *wsengine.Session, ok bool) {
	session = wsengine.NewSession()

	s.hookMu.RLock()
	onConnection := s.onConnection
	onClientMessage := s.onClientMessage
	s.hookMu.RUnlock()

	switch {
	case onConnection != nil:
		onConnection(session, state, info)

		if !session.IsOnMessageCallbackRegistered() {
			s.logger.Error("WebSocketServer application developer error: server callback improperly registered")
			s.logger.Error("Missing call to SetOnMessageCallback inside the OnConnection callback")
			return nil, false
		}

	case onClientMessage != nil:
		// The closure keeps state and info alive for the whole session
		// lifetime; it is cleared before the session is deregistered.
		session.SetOnMessageCallback(func(msg *wsengine.Message) {
			onClientMessage(state, info, session, msg)
		})

	default:
		s.logger.Error("WebSocketServer application developer error: no server callback is registered")
		s.logger.Error("Missing call to SetOnConnectionCallback or SetOnClientMessageCallback")
		return nil, false
	}

	// Servers never reconnect outbound.
	session.DisableAutomaticReconnection()

	if s.pongEnabled.Load() {
		session.EnablePong()
	} else {
		session.DisablePong()
	}

	if s.deflateEnabled.Load() {
		session.EnablePerMessageDeflate()
	} else {
		session.DisablePerMessageDeflate()
	}

	return session, true
}

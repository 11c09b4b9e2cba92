package wsengine

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
)

const defaultWriteTimeout = 10 * time.Second

// Session is a server-side WebSocket conversation with a single peer.
//
// The zero Session is not usable; create one with NewSession, configure it,
// then bind it to an accepted connection with ConnectToSocket and drive it
// with Run. Close may be called from any goroutine.
type Session struct {
	// mu serializes writes to the connection.
	mu   sync.Mutex
	conn net.Conn

	// cbMu guards the message callback; the callback itself always runs
	// outside the lock.
	cbMu      sync.RWMutex
	onMessage MessageCallback

	pongEnabled    atomic.Bool
	deflateEnabled atomic.Bool
	autoReconnect  atomic.Bool

	// flate is non-nil when permessage-deflate was offered during the
	// handshake; compressed is true once the peer accepted it.
	flate      *wsflate.Extension
	compressed bool

	writeTimeout time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSession creates a detached session. Pong responses and
// permessage-deflate are enabled, automatic reconnection is enabled; servers
// are expected to disable reconnection before running the session.
func NewSession() *Session {
	s := &Session{writeTimeout: defaultWriteTimeout}
	s.pongEnabled.Store(true)
	s.deflateEnabled.Store(true)
	s.autoReconnect.Store(true)
	return s
}

// SetOnMessageCallback installs the message callback. Passing nil clears it;
// after the call returns no further callback invocations are started.
func (s *Session) SetOnMessageCallback(cb MessageCallback) {
	s.cbMu.Lock()
	s.onMessage = cb
	s.cbMu.Unlock()
}

// IsOnMessageCallbackRegistered reports whether a message callback is set.
func (s *Session) IsOnMessageCallbackRegistered() bool {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()
	return s.onMessage != nil
}

// EnablePong makes the session answer inbound pings with pongs.
func (s *Session) EnablePong() {
	s.pongEnabled.Store(true)
}

// DisablePong stops the session from answering inbound pings.
func (s *Session) DisablePong() {
	s.pongEnabled.Store(false)
}

// EnablePerMessageDeflate offers the permessage-deflate extension during the
// handshake. Must be called before ConnectToSocket to take effect.
func (s *Session) EnablePerMessageDeflate() {
	s.deflateEnabled.Store(true)
}

// DisablePerMessageDeflate withholds the permessage-deflate extension.
func (s *Session) DisablePerMessageDeflate() {
	s.deflateEnabled.Store(false)
}

// DisableAutomaticReconnection marks the session as never reconnecting on
// its own. Server-created sessions must disable reconnection: there is no
// remote endpoint to dial back to.
func (s *Session) DisableAutomaticReconnection() {
	s.autoReconnect.Store(false)
}

// IsAutomaticReconnectionEnabled reports the reconnection switch.
func (s *Session) IsAutomaticReconnectionEnabled() bool {
	return s.autoReconnect.Load()
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// ConnectToSocket performs the server side of the WebSocket opening
// handshake on an already-accepted connection. The whole exchange is bounded
// by timeout; a non-positive timeout fails immediately with a
// timeout-shaped result. On success an Open message is delivered to the
// callback before ConnectToSocket returns.
func (s *Session) ConnectToSocket(conn net.Conn, timeout time.Duration) HandshakeResult {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if s.closed.Load() {
		conn.Close()
		return HandshakeResult{HTTPStatus: 400, Error: "session closed before handshake"}
	}

	deadline := time.Now().Add(timeout)
	if timeout <= 0 {
		deadline = time.Now()
	}
	conn.SetDeadline(deadline)

	open := &OpenInfo{Headers: make(map[string]string)}
	upgrader := ws.Upgrader{
		OnRequest: func(uri []byte) error {
			open.URI = string(uri)
			return nil
		},
		OnHeader: func(key, value []byte) error {
			open.Headers[string(key)] = string(value)
			return nil
		},
	}

	var flate *wsflate.Extension
	if s.deflateEnabled.Load() {
		flate = &wsflate.Extension{Parameters: wsflate.DefaultParameters}
		upgrader.Negotiate = flate.Negotiate
	}

	hs, err := upgrader.Upgrade(conn)
	if err != nil {
		conn.SetDeadline(time.Time{})
		status := 400
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			status = 408
		}
		return HandshakeResult{HTTPStatus: status, Error: err.Error()}
	}
	conn.SetDeadline(time.Time{})

	open.Protocol = hs.Protocol

	s.mu.Lock()
	s.flate = flate
	if flate != nil {
		_, s.compressed = flate.Accepted()
	}
	s.mu.Unlock()

	s.deliver(&Message{Type: MessageTypeOpen, Open: open})

	return HandshakeResult{Success: true}
}

// Send transmits a data message, binary or text.
func (s *Session) Send(data []byte, binary bool) error {
	if binary {
		return s.sendFrame(ws.NewBinaryFrame(data))
	}
	return s.sendFrame(ws.NewTextFrame(data))
}

// SendText transmits a text message.
func (s *Session) SendText(text string) error {
	return s.sendFrame(ws.NewTextFrame([]byte(text)))
}

// SendBinary transmits a binary message.
func (s *Session) SendBinary(data []byte) error {
	return s.sendFrame(ws.NewBinaryFrame(data))
}

// Ping sends a ping control frame with the given payload.
func (s *Session) Ping(data []byte) error {
	return s.writeFrame(ws.NewPingFrame(data))
}

func (s *Session) sendFrame(frame ws.Frame) error {
	if s.compressedEnabled() && !frame.Header.OpCode.IsControl() {
		compressed, err := wsflate.CompressFrame(frame)
		if err == nil {
			frame = compressed
		}
	}
	return s.writeFrame(frame)
}

func (s *Session) compressedEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compressed
}

func (s *Session) writeFrame(frame ws.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() || s.conn == nil {
		return net.ErrClosed
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return ws.WriteFrame(s.conn, frame)
}

// Close signals the session to wind down. It sends a best-effort close frame
// and tears down the underlying connection, unblocking a concurrent Run.
// Safe to call from any goroutine; subsequent calls are no-ops.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.mu.Lock()
		conn := s.conn
		if conn != nil {
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			ws.WriteFrame(conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
			conn.Close()
		}
		s.mu.Unlock()
	})
}

// deliver invokes the message callback, if one is registered, outside any
// session lock.
func (s *Session) deliver(msg *Message) {
	s.cbMu.RLock()
	cb := s.onMessage
	s.cbMu.RUnlock()

	if cb != nil {
		cb(msg)
	}
}

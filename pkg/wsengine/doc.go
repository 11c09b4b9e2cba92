// Package wsengine implements a server-side WebSocket session over an
// already-accepted TCP connection.
//
// A Session is created detached, configured (message callback, pong and
// permessage-deflate switches), then bound to a raw connection with
// ConnectToSocket, which performs the HTTP Upgrade handshake under a hard
// deadline. Run drives the frame loop until the peer closes, the session is
// closed locally, or an I/O error occurs. Everything the session observes is
// delivered to the single message callback: the opening handshake, data
// messages, pings, pongs, the closing handshake, and errors.
//
// The opening handshake and framing are built on github.com/gobwas/ws, which
// upgrades raw net.Conn values directly; the permessage-deflate extension is
// negotiated and applied through gobwas/ws/wsflate.
//
// Close is safe to call from any goroutine and any number of times. It sends
// a best-effort close frame and tears down the connection, which unblocks a
// concurrent Run.
package wsengine

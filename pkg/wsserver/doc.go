// Package wsserver bridges a generic TCP accepting server and the WebSocket
// session engine: it accepts raw connections, performs the opening handshake,
// tracks live sessions, drives each session to completion, and tears it down.
//
// # Architecture
//
// The layer is composed of a few small parts:
//
//   - client registry: a mutex-guarded set of live sessions that other
//     goroutines may snapshot (for broadcast or shutdown)
//   - session configurator: builds a fresh session per connection, applies
//     the server-wide pong and permessage-deflate switches, and wires the
//     application callback
//   - connection handler: the per-connection worker driving the state
//     machine from accept to teardown
//   - server lifecycle: composition with the accepting server, including the
//     ordered Stop sequence
//
// # Connection lifecycle
//
// For every accepted connection a dedicated worker runs:
//
//  1. label the worker with "WebSocketServer::" + connection id
//  2. configure a fresh session and wire the application callback
//  3. enroll the session in the client registry
//  4. perform the opening handshake (bounded by the handshake timeout)
//  5. run the session until it winds down
//  6. clear the per-message callback, deregister, mark the connection
//     terminated
//
// The registry insert always precedes any session I/O, and the erase always
// follows the run loop returning with the callback already cleared, so a
// late-scheduled message dispatch can never touch connection-scoped state
// that is being torn down.
//
// # Application callbacks
//
// Exactly one of two hooks must be installed before Start:
//
//   - OnConnection(session, state, info): called once per connection before
//     the handshake; it must register a per-message callback on the session
//   - OnClientMessage(state, info, session, msg): called for every message
//     the session delivers
//
// When both are set, OnConnection wins. Hooks run on the connection's worker
// and block it; applications must not wait for a reply from the same session
// inside a hook.
//
// # Shutdown
//
// Stop first halts accepting, then closes every live session from a registry
// snapshot (without holding the registry mutex across I/O), then waits for
// all workers through the accepting server. Stop is idempotent.
package wsserver

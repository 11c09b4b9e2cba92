// Package tcpserver provides a generic TCP accepting server.
//
// The server owns the listening socket and the accept loop. Each accepted
// connection is handed to a registered Handler on its own goroutine, together
// with a ConnectionState (stable identifier plus terminal sink) and a
// ConnectionInfo (remote peer metadata). The server enforces a connection
// capacity at accept time, so handlers never see connections beyond the
// limit.
//
// Shutdown is two-phased: StopAcceptingConnections closes the listener
// without touching live connections, and Stop additionally waits for every
// per-connection worker to return. Handlers are expected to exit on their
// own once their connection winds down; the server never kills a worker.
package tcpserver

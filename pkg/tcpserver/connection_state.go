package tcpserver

import (
	"net"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// ConnectionState tracks the liveness of a single accepted connection.
// It is created by the accepting server and shared with the handler, which
// must call SetTerminated on every exit path.
type ConnectionState struct {
	id         string
	terminated atomic.Bool
}

// NewConnectionState returns a ConnectionState with a fresh unique identifier.
func NewConnectionState() *ConnectionState {
	return &ConnectionState{id: uuid.NewString()}
}

// ID returns the stable identifier of the connection.
func (c *ConnectionState) ID() string {
	return c.id
}

// SetTerminated marks the connection as terminated. Idempotent.
func (c *ConnectionState) SetTerminated() {
	c.terminated.Store(true)
}

// IsTerminated reports whether the connection has been marked terminated.
func (c *ConnectionState) IsTerminated() bool {
	return c.terminated.Load()
}

// ConnectionInfo carries per-connection metadata about the remote peer.
// It is created once per accepted connection; ownership passes to the
// handler layer.
type ConnectionInfo struct {
	// RemoteIP is the peer's IP address in textual form.
	RemoteIP string

	// RemotePort is the peer's TCP port.
	RemotePort int
}

// newConnectionInfo builds a ConnectionInfo from the peer address of conn.
func newConnectionInfo(conn net.Conn) *ConnectionInfo {
	info := &ConnectionInfo{}
	host, port, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		info.RemoteIP = conn.RemoteAddr().String()
		return info
	}
	info.RemoteIP = host
	if p, err := strconv.Atoi(port); err == nil {
		info.RemotePort = p
	}
	return info
}

// RemoteAddr returns the peer address in "ip:port" form.
func (i *ConnectionInfo) RemoteAddr() string {
	return net.JoinHostPort(i.RemoteIP, strconv.Itoa(i.RemotePort))
}

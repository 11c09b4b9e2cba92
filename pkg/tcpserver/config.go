package tcpserver

// Config holds configuration for the accepting server.
type Config struct {
	// Host is the interface to bind. Default: "127.0.0.1".
	Host string

	// Port is the TCP port to listen on. Port 0 asks the OS for a free
	// port; the bound address is available via Server.Addr after Start.
	Port int

	// Backlog is the requested listen backlog. The Go runtime applies the
	// operating system's backlog when binding, so this value is advisory
	// and kept for configuration surface parity.
	// Default: 5.
	Backlog int

	// MaxConnections is the maximum number of simultaneously handled
	// connections. Connections accepted beyond the limit are closed
	// immediately and the handler is not invoked. 0 means the default.
	// Default: 32.
	MaxConnections int

	// Network selects the address family: "tcp", "tcp4" or "tcp6".
	// Default: "tcp".
	Network string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           8080,
		Backlog:        5,
		MaxConnections: 32,
		Network:        "tcp",
	}
}

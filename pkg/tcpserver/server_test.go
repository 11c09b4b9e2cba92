package tcpserver

import (
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestStartWithoutHandler(t *testing.T) {
	s := New(&Config{Port: 0}, testLogger())
	if err := s.Start(); err != ErrNoHandler {
		t.Fatalf("Start() = %v, want ErrNoHandler", err)
	}
}

func TestStartTwice(t *testing.T) {
	s := New(&Config{Port: 0}, testLogger())
	s.SetConnectionHandler(func(conn net.Conn, state *ConnectionState, info *ConnectionInfo) {
		state.SetTerminated()
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second Start() = %v, want ErrAlreadyStarted", err)
	}
}

func TestHandlerReceivesConnections(t *testing.T) {
	var (
		mu     sync.Mutex
		ids    []string
		states []*ConnectionState
		infos  []*ConnectionInfo
	)

	s := New(&Config{Port: 0}, testLogger())
	s.SetConnectionHandler(func(conn net.Conn, state *ConnectionState, info *ConnectionInfo) {
		mu.Lock()
		ids = append(ids, state.ID())
		states = append(states, state)
		infos = append(infos, info)
		mu.Unlock()

		// Hold the connection until the peer goes away.
		io.Copy(io.Discard, conn)
		state.SetTerminated()
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", s.Addr())
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		defer conn.Close()
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ids) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if ids[0] == ids[1] {
		t.Errorf("connection ids should be distinct, both %q", ids[0])
	}
	for i, info := range infos {
		if info.RemoteIP == "" || info.RemotePort == 0 {
			t.Errorf("connection %d: incomplete info %+v", i, info)
		}
	}
	for i, state := range states {
		if state.IsTerminated() {
			t.Errorf("connection %d terminated while still held open", i)
		}
	}
}

func TestMaxConnectionsRejected(t *testing.T) {
	release := make(chan struct{})

	s := New(&Config{Port: 0, MaxConnections: 1}, testLogger())
	s.SetConnectionHandler(func(conn net.Conn, state *ConnectionState, info *ConnectionInfo) {
		<-release
		state.SetTerminated()
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()
	defer close(release)

	first, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()

	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })

	second, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer second.Close()

	// The server should close the excess connection without dispatching it.
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := second.Read(buf); err != io.EOF {
		t.Fatalf("excess connection read = %v, want io.EOF", err)
	}
	if got := s.ConnectionCount(); got != 1 {
		t.Errorf("ConnectionCount() = %d, want 1", got)
	}
}

func TestStopAcceptingLeavesLiveConnections(t *testing.T) {
	done := make(chan struct{})

	s := New(&Config{Port: 0}, testLogger())
	s.SetConnectionHandler(func(conn net.Conn, state *ConnectionState, info *ConnectionInfo) {
		io.Copy(io.Discard, conn)
		state.SetTerminated()
		close(done)
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })

	s.StopAcceptingConnections()
	s.StopAcceptingConnections() // idempotent

	if _, err := net.Dial("tcp", s.Addr()); err == nil {
		t.Error("dial after StopAcceptingConnections should fail")
	}
	if got := s.ConnectionCount(); got != 1 {
		t.Errorf("ConnectionCount() = %d after halt, want 1", got)
	}

	conn.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after peer close")
	}
}

func TestStopJoinsWorkers(t *testing.T) {
	var terminated *ConnectionState
	var mu sync.Mutex

	s := New(&Config{Port: 0}, testLogger())
	s.SetConnectionHandler(func(conn net.Conn, state *ConnectionState, info *ConnectionInfo) {
		mu.Lock()
		terminated = state
		mu.Unlock()
		io.Copy(io.Discard, conn)
		state.SetTerminated()
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return s.ConnectionCount() == 1 })

	conn.Close()
	s.Stop()
	s.Stop() // idempotent

	if got := s.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d after Stop, want 0", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if terminated == nil || !terminated.IsTerminated() {
		t.Error("worker exited without marking its connection terminated")
	}
}

func TestConnectionStateTerminated(t *testing.T) {
	state := NewConnectionState()
	if state.ID() == "" {
		t.Error("ID() should not be empty")
	}
	if state.IsTerminated() {
		t.Error("fresh state should not be terminated")
	}
	state.SetTerminated()
	state.SetTerminated() // idempotent
	if !state.IsTerminated() {
		t.Error("state should be terminated after SetTerminated")
	}
}

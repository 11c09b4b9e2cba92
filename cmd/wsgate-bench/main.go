// wsgate-bench is a load client for wsgate servers. It opens a number of
// concurrent WebSocket connections, sends messages at a fixed per-client
// rate, and reports echo round-trip latency percentiles.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type benchConfig struct {
	Addr         string
	Clients      int
	Duration     time.Duration
	RPS          float64
	PayloadBytes int
	Compression  bool
}

type benchCounters struct {
	sent     atomic.Int64
	received atomic.Int64
	errors   atomic.Int64
}

func main() {
	cfg := benchConfig{}
	flag.StringVar(&cfg.Addr, "addr", "127.0.0.1:8080", "server address")
	flag.IntVar(&cfg.Clients, "clients", 50, "concurrent connections")
	flag.DurationVar(&cfg.Duration, "duration", 10*time.Second, "test duration")
	flag.Float64Var(&cfg.RPS, "rps", 5, "messages per second per client")
	flag.IntVar(&cfg.PayloadBytes, "payload", 64, "payload size in bytes")
	flag.BoolVar(&cfg.Compression, "compression", false, "negotiate permessage-deflate")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: cfg.Addr, Path: "/"}

	var (
		counters  benchCounters
		latencyMu sync.Mutex
		latencies []time.Duration
		wg        sync.WaitGroup
	)

	deadline := time.Now().Add(cfg.Duration)
	payload := make([]byte, cfg.PayloadBytes)
	if _, err := rand.Read(payload); err != nil {
		log.Fatalf("payload: %v", err)
	}

	for i := 0; i < cfg.Clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			dialer := websocket.Dialer{
				HandshakeTimeout:  5 * time.Second,
				EnableCompression: cfg.Compression,
			}
			conn, _, err := dialer.Dial(u.String(), nil)
			if err != nil {
				counters.errors.Add(1)
				return
			}
			defer conn.Close()

			interval := time.Duration(float64(time.Second) / cfg.RPS)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for now := range ticker.C {
				if now.After(deadline) {
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}

				start := time.Now()
				if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
					counters.errors.Add(1)
					return
				}
				counters.sent.Add(1)

				conn.SetReadDeadline(time.Now().Add(5 * time.Second))
				if _, _, err := conn.ReadMessage(); err != nil {
					counters.errors.Add(1)
					return
				}
				counters.received.Add(1)

				latencyMu.Lock()
				latencies = append(latencies, time.Since(start))
				latencyMu.Unlock()
			}
		}()
	}

	wg.Wait()

	sent := counters.sent.Load()
	received := counters.received.Load()
	errs := counters.errors.Load()

	fmt.Printf("clients:  %d\n", cfg.Clients)
	fmt.Printf("sent:     %d\n", sent)
	fmt.Printf("received: %d\n", received)
	fmt.Printf("errors:   %d\n", errs)

	if len(latencies) == 0 {
		os.Exit(1)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Printf("p50:      %v\n", latencies[len(latencies)/2])
	fmt.Printf("p99:      %v\n", latencies[len(latencies)*99/100])
	fmt.Printf("max:      %v\n", latencies[len(latencies)-1])
}

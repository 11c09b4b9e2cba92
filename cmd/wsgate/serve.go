package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wsgate-dev/wsgate/pkg/tcpserver"
	"github.com/wsgate-dev/wsgate/pkg/wsengine"
	"github.com/wsgate-dev/wsgate/pkg/wsserver"
)

func serveCmd() *cobra.Command {
	var (
		host             string
		port             int
		maxConnections   int
		handshakeTimeout time.Duration
		disablePong      bool
		disableDeflate   bool
		metricsAddr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an echo WebSocket server",
		Long: `Run a WebSocket server that echoes every message back to its
sender. Useful for smoke testing clients and for load testing with
wsgate-bench.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			registry := prometheus.NewRegistry()

			server := wsserver.New(&wsserver.Config{
				Host:             host,
				Port:             port,
				MaxConnections:   maxConnections,
				HandshakeTimeout: handshakeTimeout,
				Logger:           logger,
				MetricsRegistry:  registry,
			})

			if disablePong {
				server.DisablePong()
			}
			if disableDeflate {
				server.DisablePerMessageDeflate()
			}

			server.SetOnClientMessageCallback(func(state *tcpserver.ConnectionState, info *tcpserver.ConnectionInfo, session *wsengine.Session, msg *wsengine.Message) {
				switch msg.Type {
				case wsengine.MessageTypeOpen:
					logger.Info("client connected",
						"connection_id", state.ID(),
						"remote_addr", info.RemoteAddr())
				case wsengine.MessageTypeMessage:
					if err := session.Send(msg.Data, msg.Binary); err != nil {
						logger.Error("echo failed",
							"connection_id", state.ID(),
							"error", err)
					}
				case wsengine.MessageTypeClose:
					logger.Info("client disconnected",
						"connection_id", state.ID())
				}
			})

			if err := server.Start(); err != nil {
				return err
			}
			logger.Info("serving", "address", server.Addr())

			var opsServer *http.Server
			if metricsAddr != "" {
				r := chi.NewRouter()
				r.Use(chimw.Recoverer)
				r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
					w.Write([]byte("ok"))
				})

				opsServer = &http.Server{Addr: metricsAddr, Handler: r}
				go func() {
					logger.Info("metrics endpoint", "address", metricsAddr)
					if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics endpoint failed", "error", err)
					}
				}()
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			<-shutdown

			logger.Info("shutting down...")
			server.Stop()
			if opsServer != nil {
				opsServer.Close()
			}
			logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Interface to bind")
	cmd.Flags().IntVar(&port, "port", 8080, "TCP port to listen on")
	cmd.Flags().IntVar(&maxConnections, "max-connections", 128, "Maximum simultaneous connections")
	cmd.Flags().DurationVar(&handshakeTimeout, "handshake-timeout", wsserver.DefaultHandshakeTimeout, "Opening handshake timeout")
	cmd.Flags().BoolVar(&disablePong, "disable-pong", false, "Do not answer inbound pings")
	cmd.Flags().BoolVar(&disableDeflate, "disable-deflate", false, "Do not offer permessage-deflate")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for the Prometheus /metrics endpoint (empty disables)")

	return cmd
}

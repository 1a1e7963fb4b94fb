// Package observability provides the metrics listener and gRPC interceptors.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meeting-transcription-engine/internal/observability/logging"
)

// Server serves Prometheus metrics and health probes on a dedicated port,
// away from the session API.
type Server struct {
	server *http.Server
	addr   string
}

// NewServer creates the metrics server. ready reports whether the engine is
// prepared to take sessions; a nil ready is treated as always ready.
func NewServer(addr string, ready func() bool) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("starting"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start serves in a goroutine until Shutdown.
func (s *Server) Start() {
	log := logging.WithComponent("observability")
	go func() {
		log.Info().Str("addr", s.addr).Msg("metrics server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log := logging.WithComponent("observability")
	log.Info().Msg("metrics server shutting down")
	return s.server.Shutdown(ctx)
}

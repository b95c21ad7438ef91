package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves a Prometheus registry's series over HTTP.
type Server struct {
	addr     string
	path     string
	registry *prometheus.Registry
	server   *http.Server
	mu       sync.RWMutex // protects server field
	logger   *slog.Logger
}

// NewServer creates a metrics server bound to addr (e.g. ":9090")
// serving reg's series at path.
func NewServer(addr, path string, reg *prometheus.Registry, log *slog.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}

	return &Server{
		addr:     addr,
		path:     path,
		registry: reg,
		logger:   log,
	}
}

// Start starts the metrics server in the background.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	s.logger.Info("starting metrics server", "addr", s.addr, "path", s.path)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()

	if server == nil {
		return nil
	}

	s.logger.Info("stopping metrics server")
	if err := server.Shutdown(ctx); err != nil {
		s.logger.Error("failed to stop metrics server gracefully", "error", err)
		return fmt.Errorf("metrics server shutdown: %w", err)
	}

	s.logger.Info("metrics server stopped")
	return nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	return s.addr
}

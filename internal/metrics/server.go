package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadyChecker returns nil when the stream is ready.
type ReadyChecker func() error

// Server exposes /metrics, /healthz and /readyz.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer creates a Server listening on addr. checkReady backs /readyz.
func NewServer(addr string, checkReady ReadyChecker, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(checkReady),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.Named("metrics-server"),
	}
}

// NewHandler returns the mux served by Server.
func NewHandler(checkReady ReadyChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if checkReady != nil {
			if err := checkReady(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprintf(w, "NOT READY: %v", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
	return mux
}

// Start serves until ctx is cancelled or the listener fails.
// On cancellation the server is shut down with a 5 second grace period.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("Starting metrics server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Metrics server shutdown requested")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server failed to start: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Metrics server shutdown failed", zap.Error(err))
		return err
	}

	s.log.Info("Metrics server stopped")
	return nil
}

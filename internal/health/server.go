// Package health exposes a lightweight HTTP liveness endpoint and the metrics
// scrape endpoint for container probes.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"tg_link_relay_bot/internal/logging"
)

const (
	readHeaderTimeout  = 2 * time.Second
	healthListenPrefix = ":"
)

// UserCounter reports the size of the user registry.
type UserCounter interface {
	Count() int
}

// Server hosts the health endpoint and owns the underlying HTTP server.
type Server struct {
	server *http.Server
	logger *logrus.Entry
	users  UserCounter
}

type response struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
}

// NewServer constructs a health server that exposes GET /healthz on the
// provided port, and GET /metrics when metricsHandler is non-nil.
func NewServer(port int, users UserCounter, metricsHandler http.Handler, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger: logger,
		users:  users,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf("%s%d", healthListenPrefix, port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// ListenAndServe starts the health server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "health_listen",
		"addr":  s.server.Addr,
	}).Info("starting health server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "health_stopped").Info("health server stopped")
			return nil
		}

		return fmt.Errorf("health server listen: %w", err)
	}

	s.logger.WithField("event", "health_stopped").Info("health server stopped")
	return nil
}

// Shutdown gracefully stops the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := response{Status: "ok"}
	if s.users != nil {
		resp.Users = s.users.Count()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithField("event", "health_write_error").WithError(err).Error("failed to encode health response")
	}
}

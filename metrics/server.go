package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// HealthStatus is the body of the /healthz response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Link      string    `json:"link,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Server exposes a registry over HTTP next to a health endpoint.
type Server struct {
	listen      string
	metricsPath string

	registry *prometheus.Registry
	health   func() HealthStatus
	log      *logrus.Entry
}

// NewServer creates a server with its own registry. The Go runtime and
// process collectors are registered on it.
func NewServer(listen, metricsPath string) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	return &Server{
		listen:      listen,
		metricsPath: metricsPath,
		registry:    registry,
		log:         logrus.WithField("component", "metrics"),
	}
}

// Registry returns the registry collectors should be registered with.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// SetHealthCheck installs the function backing /healthz. It must be called
// before Run.
func (s *Server) SetHealthCheck(fn func() HealthStatus) {
	s.health = fn
}

// Handler returns the HTTP handler serving the metrics and health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.metricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          s.registry,
	}))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Run serves until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	s.log.WithFields(logrus.Fields{
		"function": "Serve",
		"addr":     ln.Addr().String(),
		"path":     s.metricsPath,
	}).Info("Metrics server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := HealthStatus{Status: "healthy"}
	if s.health != nil {
		status = s.health()
	}
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.log.WithError(err).Debug("Failed to write health response")
	}
}

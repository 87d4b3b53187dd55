package exporter

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/rileyhilliard/amdtop/internal/monitor"
)

// NewRegistry returns a registry holding only the amdtop collector, so the
// endpoint is not mixed with the exporting process's own Go metrics.
func NewRegistry(src SnapshotSource) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(src))
	return registry
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status       string                             `json:"status"`
	LastSample   *time.Time                         `json:"last_sample,omitempty"`
	Capabilities map[monitor.Capability]monitor.Flag `json:"capabilities"`
}

// NewRouter serves:
//
//	GET /metrics   Prometheus exposition for registry
//	GET /healthz   200 once a system sample exists, 503 before
//	GET /snapshot  the full snapshot as JSON
func NewRouter(src SnapshotSource, registry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		snap := src.Snapshot()
		resp := healthResponse{Status: "ok", Capabilities: snap.Capabilities}
		code := http.StatusOK
		if ts := snap.System.Timestamp; ts.IsZero() {
			resp.Status = "starting"
			code = http.StatusServiceUnavailable
		} else {
			resp.LastSample = &ts
		}
		writeJSON(w, code, resp)
	}).Methods(http.MethodGet)

	r.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, src.Snapshot())
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server is the HTTP endpoint for a snapshot source.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// NewServer creates a server for src listening on addr once started.
func NewServer(addr string, src SnapshotSource, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(src, NewRegistry(src)),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		log: log,
	}
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't listen on "+s.srv.Addr,
			"Pick a free address with --metrics-addr or exporter.address.")
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("exporter shutdown: %v", err)
		}
	}()

	s.log.Info("serving metrics on http://%s/metrics", ln.Addr())
	err := s.srv.Serve(ln)
	if stderrors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

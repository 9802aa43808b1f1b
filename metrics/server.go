package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves /metrics from the given gatherer.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the default Prometheus registry.
func New(listenAddr string) (*MetricsServer, error) {
	return NewWithGatherer(listenAddr, prometheus.DefaultGatherer)
}

// NewWithGatherer creates a metrics server exposing gatherer.
func NewWithGatherer(listenAddr string, gatherer prometheus.Gatherer) (*MetricsServer, error) {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &MetricsServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Handler returns the HTTP handler serving /metrics.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

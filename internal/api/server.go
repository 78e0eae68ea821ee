// Package api exposes the analysis over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/metrics"
	"github.com/alejandrodnm/flipscan/internal/scanner"
)

// Scanner is the orchestrator the API delegates market scans to.
type Scanner interface {
	Scan(ctx context.Context, req scanner.Request) (domain.Report, error)
}

// Server holds the HTTP handlers.
type Server struct {
	scanner  Scanner
	defaults domain.AnalysisParameters
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// NewServer builds a Server. defaults are the parameters used when a request
// does not override them. m may be nil.
func NewServer(s Scanner, defaults domain.AnalysisParameters, m *metrics.Metrics, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{scanner: s, defaults: defaults, metrics: m, timeout: timeout}
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.Timeout(s.timeout))

		r.Get("/analysis/{region}/{type}", s.handleScan)
		r.Post("/analyze", s.handleAnalyze)
	})
	return r
}

// observe counts requests by route pattern and status code.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, strconv.Itoa(status))
	})
}

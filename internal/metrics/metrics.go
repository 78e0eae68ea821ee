// Package metrics holds the Prometheus collectors of the scanner.
//
// All methods are safe on a nil *Metrics, so components can be built without
// instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flipscan"

// Metrics bundles the collectors and the registry they are registered on.
type Metrics struct {
	Registry *prometheus.Registry

	// FetchesTotal counts upstream fetches.
	// Labels: source (history, orders, advisor), status (ok, error)
	FetchesTotal *prometheus.CounterVec

	// FetchDuration measures upstream fetch latency.
	// Labels: source
	FetchDuration *prometheus.HistogramVec

	// AnalysesTotal counts analyses by outcome (ok, invalid, upstream_error).
	AnalysesTotal *prometheus.CounterVec

	// RecommendationsFound observes the number of recommendations per analysis.
	RecommendationsFound prometheus.Histogram

	// HTTPRequestsTotal counts API requests.
	// Labels: route, code
	HTTPRequestsTotal *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetches_total",
			Help:      "Upstream fetches by source and status.",
		}, []string{"source", "status"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"source"}),
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses by outcome.",
		}, []string{"outcome"}),
		RecommendationsFound: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendations_per_analysis",
			Help:      "Recommendations returned by one analysis.",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20},
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

// ObserveFetch records one upstream call.
func (m *Metrics) ObserveFetch(source string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FetchesTotal.WithLabelValues(source, status).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

// ObserveAnalysis records the outcome of one analysis. found is ignored unless
// outcome is "ok".
func (m *Metrics) ObserveAnalysis(outcome string, found int) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.RecommendationsFound.Observe(float64(found))
	}
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}

// Analysis outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeUpstream = "upstream_error"
)

// Package metrics holds the Prometheus collectors for the HTTP surface and
// the analytics orchestrator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ProjectionOperations *prometheus.CounterVec

	AlgorithmRuns     *prometheus.CounterVec
	AlgorithmDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry, so
// several collectors can coexist in tests.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ProjectionOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "projection_operations_total",
				Help:      "Graph projection create/drop commands issued to the engine",
			},
			[]string{"operation", "status"},
		),
		AlgorithmRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "algorithm_runs_total",
				Help:      "Algorithm runs by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		AlgorithmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "algorithm_duration_seconds",
				Help:      "End-to-end algorithm run duration, projection included",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ProjectionOperations,
		c.AlgorithmRuns,
		c.AlgorithmDuration,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordProjection counts a projection command. A nil collector is a no-op.
func (c *Collector) RecordProjection(operation string, err error) {
	if c == nil {
		return
	}
	c.ProjectionOperations.WithLabelValues(operation, statusLabel(err)).Inc()
}

// RecordAlgorithm counts an algorithm run and observes its duration.
func (c *Collector) RecordAlgorithm(kind string, started time.Time, err error) {
	if c == nil {
		return
	}
	c.AlgorithmRuns.WithLabelValues(kind, statusLabel(err)).Inc()
	c.AlgorithmDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// Middleware records request counts and latency labelled by route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// raw paths would give every scanned URL its own series
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

const unmatchedRoute = "unmatched"

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProjection(t *testing.T) {
	c := NewCollector("test")

	c.RecordProjection("create", nil)
	c.RecordProjection("create", nil)
	c.RecordProjection("drop", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ProjectionOperations.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProjectionOperations.WithLabelValues("drop", "error")))
}

func TestRecordAlgorithm(t *testing.T) {
	c := NewCollector("test")

	c.RecordAlgorithm("centrality", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.AlgorithmRuns.WithLabelValues("centrality", "success")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordProjection("create", nil)
	c.RecordAlgorithm("community", time.Now(), nil)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector("test")

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/projections/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projections/supplyChainGraph", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/projections/{name}", "204")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "test_http_requests_total"))
}

func TestMiddlewareUnmatchedRoutesShareALabel(t *testing.T) {
	c := NewCollector("test")

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {})

	for _, path := range []string{"/wp-login.php", "/.env", "/admin/config.json"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.HTTPRequests))
}

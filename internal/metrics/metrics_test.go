package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGrade(t *testing.T) {
	m := New()
	m.ObserveGrade("open-ended", "partial", 5, 10)
	m.ObserveGrade("open-ended", "partial", 2, 10)
	m.ObserveGrade("multiple-choice", "correct", 1, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("open-ended", "partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("multiple-choice", "correct")))

	var nilMetrics *Metrics
	nilMetrics.ObserveGrade("x", "y", 1, 1)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/contents/{contentID}", func(w http.ResponseWriter, r *http.Request) {})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/contents/abc", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/contents/{contentID}", "200")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "http_requests_total"))
}

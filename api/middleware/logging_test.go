package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/metrics"
)

func TestLoggingRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	hm := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(RequestID(logger.Nop()))
	r.Use(Logging(logger.Nop(), hm))
	r.Get("/api/v1/pickups/{pickupId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pickups/"+id, nil))
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	}

	count, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoggingDefaultsStatusWhenHandlerWritesNothing(t *testing.T) {
	reg := prometheus.NewRegistry()
	hm := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(Logging(nil, hm))
	r.Get("/silent", func(http.ResponseWriter, *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/silent", nil))

	series, err := reg.Gather()
	require.NoError(t, err)
	var labels map[string]string
	for _, family := range series {
		if family.GetName() != "http_requests_total" {
			continue
		}
		labels = map[string]string{}
		for _, pair := range family.GetMetric()[0].GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
	}
	assert.Equal(t, map[string]string{"method": "GET", "route": "/silent", "status": "200"}, labels)
}

func TestRecovererReturnsInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestCORSAllowsWildcardPreviewOrigin(t *testing.T) {
	handler := CORS([]string{"https://*.vercel.app"})(okHandler())

	preflight := func(origin string) string {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/pickups", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Header().Get("Access-Control-Allow-Origin")
	}

	assert.Equal(t, "https://preview-123.vercel.app", preflight("https://preview-123.vercel.app"))
	assert.Empty(t, preflight("https://evil.example.com"))
}

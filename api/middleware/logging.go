package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/metrics"
)

// Logging emits one access line per request and feeds the HTTP metrics.
// Probe traffic is logged at debug level.
func Logging(logg *logger.Logger, hm *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(started)
			route := routePattern(r)
			hm.Observe(r.Method, route, status, elapsed)

			if logg == nil {
				return
			}
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       route,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": elapsed.Milliseconds(),
			})
			switch {
			case isProbe(r):
				logg.Debug(ctx, "http request")
			case status >= http.StatusInternalServerError:
				logg.Warn(ctx, "http request failed")
			default:
				logg.Info(ctx, "http request")
			}
		})
	}
}

// routePattern is the matched chi pattern, or "" for unrouted paths so pickup
// ids never become label values.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

func isProbe(r *http.Request) bool {
	switch r.URL.Path {
	case "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/originpoint/backend/internal/obs"
)

// statusRecorder captures the status code a handler actually wrote, the
// way net/http's ResponseWriter never exposes it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogging logs one structured line per request (method, route,
// status, duration) via slog, and records the same observations into
// internal/obs.Metrics — mirroring the teacher's pattern of a single
// middleware owning both the log line and the metric for a concern.
func RequestLogging(logger *slog.Logger, metrics *obs.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			route := routeTemplate(r)

			logger.Info("http_request",
				"method", r.Method,
				"route", route,
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
			)
			if metrics != nil {
				metrics.RecordHTTPRequest(route, r.Method, http.StatusText(rec.status), duration.Seconds())
			}
		})
	}
}

// routeTemplate prefers the matched mux route's path template
// ("/applications/{id}") over the raw URL so metric cardinality stays
// bounded regardless of how many distinct IDs are requested.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

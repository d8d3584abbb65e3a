package middleware

import (
	"net/http"
	"strings"
	"time"
)

// RequestRecorder receives one call per finished request.
type RequestRecorder interface {
	RecordRequest(method, endpoint string, statusCode int, duration time.Duration, responseSize int64)
}

// MetricsMiddleware records every request against its matched route, so
// label cardinality stays bounded by the route table.
func MetricsMiddleware(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			recorder.RecordRequest(r.Method, routeLabel(r), wrapped.StatusCode(), time.Since(start), wrapped.BytesWritten())
		})
	}
}

// routeLabel returns the path part of the ServeMux pattern that handled r.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	pattern := r.Pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	return strings.TrimSuffix(pattern, "{$}")
}

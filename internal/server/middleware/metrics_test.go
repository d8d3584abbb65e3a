package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method   string
	endpoint string
	status   int
	size     int64
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeRecorder) RecordRequest(method, endpoint string, statusCode int, _ time.Duration, responseSize int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method, endpoint, statusCode, responseSize})
}

func TestMetricsMiddleware_LabelsByRoute(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("GET /heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := &fakeRecorder{}
	h := MetricsMiddleware(rec)(mux)

	for _, path := range []string{"/", "/heartbeat", "/nope/123"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/heartbeat", nil))

	require.Len(t, rec.requests, 4)
	assert.Equal(t, recordedRequest{"GET", "/", 200, 11}, rec.requests[0])
	assert.Equal(t, "/heartbeat", rec.requests[1].endpoint)
	assert.Equal(t, "unmatched", rec.requests[2].endpoint)
	assert.Equal(t, 404, rec.requests[2].status)
	assert.Equal(t, 405, rec.requests[3].status)
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"", "unmatched"},
		{"GET /{$}", "/"},
		{"GET /health", "/health"},
		{"/ws/heartbeat", "/ws/heartbeat"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Pattern = tt.pattern
			assert.Equal(t, tt.want, routeLabel(r))
		})
	}
}

package server

import (
	"net/http"
	"testing"
)

func TestCORSIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ts := startTestServer(t, testConfig())

	tests := []struct {
		name        string
		method      string
		path        string
		origin      string
		reqHeaders  string
		wantStatus  int
		wantOrigin  string
		wantHeaders string
	}{
		{
			name:       "simple GET echoes origin",
			method:     http.MethodGet,
			path:       "/heartbeat",
			origin:     "http://localhost:3000",
			wantStatus: http.StatusOK,
			wantOrigin: "http://localhost:3000",
		},
		{
			name:       "no origin no CORS header",
			method:     http.MethodGet,
			path:       "/",
			wantStatus: http.StatusOK,
		},
		{
			name:        "preflight on health",
			method:      http.MethodOptions,
			path:        "/health",
			origin:      "https://dashboard.example",
			reqHeaders:  "Authorization, X-Trace",
			wantStatus:  http.StatusOK,
			wantOrigin:  "https://dashboard.example",
			wantHeaders: "Authorization, X-Trace",
		},
		{
			name:       "preflight on unknown path",
			method:     http.MethodOptions,
			path:       "/nowhere",
			origin:     "https://dashboard.example",
			wantStatus: http.StatusOK,
			wantOrigin: "https://dashboard.example",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(tc.method, ts.baseURL+tc.path, nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			if tc.reqHeaders != "" {
				req.Header.Set("Access-Control-Request-Headers", tc.reqHeaders)
			}

			resp, err := ts.client.Do(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, resp.StatusCode)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("Expected Access-Control-Allow-Origin %q, got %q", tc.wantOrigin, got)
			}
			if tc.wantOrigin != "" && resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("Expected credentials to be allowed")
			}
			if tc.wantHeaders != "" {
				if got := resp.Header.Get("Access-Control-Allow-Headers"); got != tc.wantHeaders {
					t.Errorf("Expected Access-Control-Allow-Headers %q, got %q", tc.wantHeaders, got)
				}
			}
		})
	}
}

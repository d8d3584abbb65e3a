package server

import (
	"crypto/tls"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestTLSIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig()
	cfg.TLS.Enabled = true
	cfg.Security.Headers.Enabled = true
	cfg.Stream.Interval = 50 * time.Millisecond
	ts := startTestServer(t, cfg)

	t.Run("heartbeat_over_https", func(t *testing.T) {
		resp, err := ts.client.Get(ts.baseURL + "/heartbeat")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
		}
		if hsts := resp.Header.Get("Strict-Transport-Security"); !strings.HasPrefix(hsts, "max-age=") {
			t.Errorf("Expected HSTS header over TLS, got %q", hsts)
		}
	})

	t.Run("stream_over_wss", func(t *testing.T) {
		dialer := websocket.Dialer{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		conn, _, err := dialer.Dial(ts.wsURL+"/ws/heartbeat", nil)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if msg["type"] != "heartbeat" {
			t.Errorf("Unexpected message %v", msg)
		}
	})

	t.Run("http_rejection_on_https_port", func(t *testing.T) {
		httpClient := &http.Client{Timeout: 2 * time.Second}
		resp, err := httpClient.Get("http://" + ts.addr + "/heartbeat")
		if err != nil {
			t.Logf("Received expected error: %v", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("Expected an error or status 400, but got status %d", resp.StatusCode)
		}
	})

	t.Run("tls_connection_details", func(t *testing.T) {
		conn, err := tls.Dial("tcp", ts.addr, &tls.Config{InsecureSkipVerify: true})
		if err != nil {
			t.Fatalf("Failed to establish TLS connection: %v", err)
		}
		defer conn.Close()

		if state := conn.ConnectionState(); state.Version < tls.VersionTLS12 {
			t.Errorf("Expected TLS 1.2 or higher, got: %x", state.Version)
		}
	})

	t.Run("tls_below_minimum_rejected", func(t *testing.T) {
		_, err := tls.Dial("tcp", ts.addr, &tls.Config{InsecureSkipVerify: true, MaxVersion: tls.VersionTLS11})
		if err == nil {
			t.Fatal("Expected TLS 1.1 handshake to fail")
		}
	})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leslieo2/heartbeat-server/internal/readiness"
	"github.com/leslieo2/heartbeat-server/internal/status"
)

func getJSON(t *testing.T, ts *testServer, path string, v any) int {
	t.Helper()
	resp, err := ts.client.Get(ts.baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			t.Fatalf("GET %s: failed to decode %q: %v", path, body, err)
		}
	}
	return resp.StatusCode
}

func TestServerServesEndpoints(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ts := startTestServer(t, testConfig())

	var root status.RootMessage
	if code := getJSON(t, ts, "/", &root); code != http.StatusOK || root.Message != "Backend server is running" {
		t.Errorf("GET /: %d %+v", code, root)
	}

	var beat status.HeartbeatReport
	if code := getJSON(t, ts, "/heartbeat", &beat); code != http.StatusOK || beat.Status != "alive" {
		t.Errorf("GET /heartbeat: %d %+v", code, beat)
	}
	if beat.UptimeSeconds < 0 {
		t.Errorf("negative uptime %d", beat.UptimeSeconds)
	}

	start := time.Now()
	var health status.HealthReport
	code := getJSON(t, ts, "/health", &health)
	elapsed := time.Since(start)
	if code != http.StatusOK || health.Status != "healthy" {
		t.Fatalf("GET /health: %d %+v", code, health)
	}
	if health.Services["database"] != "connected" || health.Services["cache"] != "connected" {
		t.Errorf("unexpected services %v", health.Services)
	}
	// Two 100ms simulated checks in parallel.
	if elapsed < 100*time.Millisecond || elapsed >= 200*time.Millisecond {
		t.Errorf("expected ~100ms health latency, got %v", elapsed)
	}
}

func TestServerInjectedFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ts := startTestServer(t, testConfig(), WithChecks(
		readiness.NewSimulatedCheck("database", 10*time.Millisecond),
		readiness.NewFuncCheck("cache", func(ctx context.Context) error {
			return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
		}),
	))

	var failure status.HealthFailure
	if code := getJSON(t, ts, "/health", &failure); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if failure.Status != "unhealthy" || !strings.HasPrefix(failure.Error, "cache: ") {
		t.Errorf("unexpected failure %+v", failure)
	}

	// Liveness is unaffected by readiness.
	var beat status.HeartbeatReport
	if code := getJSON(t, ts, "/heartbeat", &beat); code != http.StatusOK {
		t.Errorf("heartbeat should stay 200, got %d", code)
	}
}

func TestServerHeartbeatStream(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := testConfig()
	cfg.Stream.Interval = 50 * time.Millisecond
	ts := startTestServer(t, cfg)

	conn, resp, err := websocket.DefaultDialer.Dial(ts.wsURL+"/ws/heartbeat", http.Header{"Origin": {"http://other.example"}})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	var last int64 = -1
	for i := range 3 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg status.StreamHeartbeat
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if msg.Type != "heartbeat" || msg.Status != "alive" || msg.Timestamp == "" {
			t.Errorf("unexpected message %+v", msg)
		}
		if msg.UptimeSeconds < last {
			t.Errorf("uptime went backwards: %d after %d", msg.UptimeSeconds, last)
		}
		last = msg.UptimeSeconds
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	waitUntil(t, 2*time.Second, func() bool { return ts.app.stream.ActiveSessions() == 0 })
}

func TestServerShutdownClosesStreams(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := testConfig()
	cfg.Stream.Interval = time.Hour

	listener := listenLocal(t)
	app := newTestApp(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(ctx, listener) }()

	wsURL := "ws://" + listener.Addr().String() + "/ws/heartbeat"
	var (
		conn *websocket.Conn
		err  error
	)
	waitUntil(t, 5*time.Second, func() bool {
		conn, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
		return err == nil
	})
	defer conn.Close()
	waitUntil(t, time.Second, func() bool { return app.stream.ActiveSessions() == 1 })

	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

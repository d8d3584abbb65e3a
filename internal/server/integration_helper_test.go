package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/observability"
)

// testServer holds information about a running test server.
type testServer struct {
	app     *Server
	addr    string
	baseURL string
	wsURL   string
	client  *http.Client
}

// testConfig returns defaults suitable for tests: loopback only, quiet
// logging and no separate metrics listener.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Observability.Logging.Level = "error"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *Server {
	t.Helper()
	metrics := observability.NewMetrics()
	if err := metrics.Register(); err != nil {
		t.Fatalf("Failed to register metrics: %v", err)
	}
	base := []Option{WithLogger(observability.NewNopLogger()), WithMetrics(metrics)}
	app, err := New(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return app
}

// startTestServer serves a new Server (HTTP or HTTPS) on a dynamic port.
// The server is shut down when the test ends.
func startTestServer(t *testing.T, cfg *config.Config, opts ...Option) *testServer {
	t.Helper()

	if cfg.TLS.Enabled && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		certFile, keyFile, err := generateTestCertificates(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to generate test certificates: %v", err)
		}
		cfg.TLS.CertFile = certFile
		cfg.TLS.KeyFile = keyFile
	}

	listener := listenLocal(t)
	addr := listener.Addr().String()
	cfg.Server.Port = fmt.Sprint(listener.Addr().(*net.TCPAddr).Port)

	app := newTestApp(t, cfg, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(ctx, listener) }()

	scheme, wsScheme := "http", "ws"
	client := &http.Client{Timeout: 5 * time.Second}
	if cfg.TLS.Enabled {
		scheme, wsScheme = "https", "wss"
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}

	ts := &testServer{
		app:     app,
		addr:    addr,
		baseURL: scheme + "://" + addr,
		wsURL:   wsScheme + "://" + addr,
		client:  client,
	}
	waitForServerReady(t, ts)

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Test server returned an error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Test server did not shut down in time")
		}
	})
	return ts
}

func listenLocal(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen on a dynamic port: %v", err)
	}
	return ln
}

func waitForServerReady(t *testing.T, ts *testServer) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := ts.client.Get(ts.baseURL + "/heartbeat")
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Server at %s failed to start within timeout", ts.baseURL)
}

func generateTestCertificates(tmpDir string) (string, string, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privKey.PublicKey, privKey)
	if err != nil {
		return "", "", err
	}

	certFile := filepath.Join(tmpDir, "test-cert.pem")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), 0o600); err != nil {
		return "", "", err
	}

	privKeyBytes, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return "", "", err
	}
	keyFile := filepath.Join(tmpDir, "test-key.pem")
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privKeyBytes}), 0o600); err != nil {
		return "", "", err
	}

	return certFile, keyFile, nil
}

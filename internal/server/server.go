package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/constants"
	"github.com/leslieo2/heartbeat-server/internal/observability"
	"github.com/leslieo2/heartbeat-server/internal/readiness"
	"github.com/leslieo2/heartbeat-server/internal/security"
	"github.com/leslieo2/heartbeat-server/internal/status"
	"github.com/leslieo2/heartbeat-server/internal/stream"
)

type Server struct {
	config *config.Config
	loader func() (*config.Config, error)
	mu     sync.RWMutex

	state       *status.ServerState
	prober      *readiness.Prober
	stream      *stream.Handler
	rateLimiter *security.RateLimiter
	handler     http.Handler

	server        *http.Server
	metricsServer *http.Server

	// Observability
	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	clock  status.Clock
	checks []readiness.Checker
}

// Option customises a Server built by New.
type Option func(*Server)

// WithClock sets the clock used for timestamps and uptime.
func WithClock(clock status.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithChecks replaces the readiness checks built from configuration.
func WithChecks(checks ...readiness.Checker) Option {
	return func(s *Server) { s.checks = checks }
}

func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics uses m instead of a freshly registered Metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithTracer(t *observability.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithConfigLoader sets how Reload obtains fresh configuration.
func WithConfigLoader(fn func() (*config.Config, error)) Option {
	return func(s *Server) { s.loader = fn }
}

func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{config: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		logger, err := observability.NewLogger(cfg.Observability.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		s.logger = logger
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics()
		if err := s.metrics.Register(); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	if s.tracer == nil {
		tracer, err := observability.NewTracer(cfg.Observability.Tracing)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracer = tracer
	}
	if s.checks == nil {
		checks, err := readiness.ChecksFromConfig(cfg.Readiness)
		if err != nil {
			return nil, fmt.Errorf("failed to build readiness checks: %w", err)
		}
		s.checks = checks
	}
	if s.loader == nil && cfg.ConfigFile != "" {
		file := cfg.ConfigFile
		s.loader = func() (*config.Config, error) { return config.LoadConfig(file, nil) }
	}

	s.state = status.NewServerState(s.clock)
	s.prober = readiness.NewProber(traceChecks(s.tracer, s.checks), readiness.WithObserver(s.metrics.RecordCheck))
	s.stream = stream.NewHandler(s.state, cfg.Stream, s.logger.Named("stream"), stream.WithRecorder(s.metrics))

	var skip []string
	if cfg.Observability.Metrics.Enabled {
		skip = append(skip, cfg.Observability.Metrics.Path)
	}
	s.rateLimiter = security.NewRateLimiter(cfg.Security.RateLimit, s.logger, skip...)

	s.handler = s.applyMiddleware(s.routes())

	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.rootHandler)
	mux.HandleFunc("GET "+constants.PathHeartbeat, s.heartbeatHandler)
	mux.HandleFunc("GET "+constants.PathHealth, s.healthHandler)
	mux.Handle("GET "+constants.PathStream, s.stream)

	if s.config.Observability.Metrics.Enabled {
		mux.Handle("GET "+s.config.Observability.Metrics.Path, s.metrics.Handler())
	}

	s.logger.Debug("Registered routes",
		zap.Strings("checks", s.prober.Names()),
		zap.Bool("metrics", s.config.Observability.Metrics.Enabled),
	)
	return mux
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// State exposes the uptime source shared by every endpoint.
func (s *Server) State() *status.ServerState {
	return s.state
}

func (s *Server) Logger() *observability.Logger {
	return s.logger
}

func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run listens on the configured address and serves until ctx is done. The
// metrics listener is started alongside when metrics are enabled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.GetServerAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.GetServerAddress(), err)
	}

	if s.config.Observability.Metrics.Enabled {
		metricsLn, err := net.Listen("tcp", s.config.GetMetricsAddress())
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.config.GetMetricsAddress(), err)
		}
		s.startMetricsServer(metricsLn)
	}

	return s.Serve(ctx, ln)
}

func (s *Server) startMetricsServer(ln net.Listener) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET "+s.config.Observability.Metrics.Path, s.metrics.Handler())
	s.metricsServer = &http.Server{
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting metrics server", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

// Serve accepts connections on ln until ctx is done and then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
		ErrorLog:       zap.NewStdLog(s.logger.Named("http").Logger),
	}

	serve := func() error { return s.server.Serve(ln) }
	if s.config.TLS.Enabled {
		minVersion, err := s.config.TLS.TLSMinVersion()
		if err != nil {
			_ = ln.Close()
			return err
		}
		s.server.TLSConfig = &tls.Config{MinVersion: minVersion}
		serve = func() error {
			return s.server.ServeTLS(ln, s.config.TLS.CertFile, s.config.TLS.KeyFile)
		}
	}

	s.logger.Info("Starting server",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("tls", s.config.TLS.Enabled),
		zap.Strings("checks", s.prober.Names()),
		zap.Duration("stream_interval", s.stream.Interval()),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- serve() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed", zap.Error(err))
			_ = s.releaseResources(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the listeners and open streams in parallel, then releases
// tracing, readiness connections and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.metrics.SetHealthStatus(false)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	shutdown := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("Shutting down " + name + "...")
			if err := fn(ctx); err != nil {
				s.logger.Error("Failed to shutdown "+name, zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s shutdown: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	if s.server != nil {
		shutdown("main server", s.server.Shutdown)
	}
	if s.metricsServer != nil {
		shutdown("metrics server", s.metricsServer.Shutdown)
	}
	shutdown("heartbeat streams", s.stream.Shutdown)
	wg.Wait()

	if err := s.releaseResources(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) releaseResources(ctx context.Context) error {
	var errs []error
	s.rateLimiter.Stop()
	if err := s.prober.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

// Name identifies the server to the hot reload coordinator.
func (s *Server) Name() string { return "server" }

// Reload re-reads configuration and applies the settings that can change
// at runtime: the log level and the stream interval.
func (s *Server) Reload(ctx context.Context) error {
	if s.loader == nil {
		return errors.New("no configuration source to reload from")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	next, err := s.loader()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	level := next.Observability.Logging.Level
	if level != s.config.Observability.Logging.Level {
		if err := s.logger.SetLevel(level); err != nil {
			return fmt.Errorf("failed to apply log level: %w", err)
		}
		s.config.Observability.Logging.Level = level
	}

	interval := next.Stream.Interval
	if interval != s.stream.Interval() {
		s.stream.SetInterval(interval)
		s.config.Stream.Interval = interval
	}

	if next.GetServerAddress() != s.config.GetServerAddress() {
		s.logger.Warn("Listen address changes require a restart",
			zap.String("current", s.config.GetServerAddress()),
			zap.String("configured", next.GetServerAddress()),
		)
	}

	s.logger.Info("Configuration reloaded",
		zap.String("log_level", level),
		zap.Duration("stream_interval", interval),
	)
	return nil
}

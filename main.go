package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/hotreload"
	"github.com/leslieo2/heartbeat-server/internal/server"
)

func main() {
	pflag.Usage = printUsage
	defaults := config.DefaultConfig()

	configFile := pflag.String("config", "", "Path to configuration file (YAML or JSON)")
	host := pflag.String("host", defaults.Server.Host, "Host to listen on")
	port := pflag.String("port", defaults.Server.Port, "Port to listen on")
	metricsPort := pflag.String("metrics-port", defaults.Server.MetricsPort, "Port to run the metrics server on")

	// Server configuration
	readTimeout := pflag.Duration("read-timeout", defaults.Server.ReadTimeout, "HTTP server read timeout")
	writeTimeout := pflag.Duration("write-timeout", defaults.Server.WriteTimeout, "HTTP server write timeout")
	idleTimeout := pflag.Duration("idle-timeout", defaults.Server.IdleTimeout, "HTTP server idle timeout")
	maxRequestSize := pflag.Int64("max-request-size", defaults.Server.MaxRequestSize, "Maximum request size in bytes")
	shutdownTimeout := pflag.Duration("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout")

	logLevel := pflag.String("log-level", defaults.Observability.Logging.Level, "Log level: debug, info, warn, error")
	logFormat := pflag.String("log-format", defaults.Observability.Logging.Format, "Log format: json, console")

	// Heartbeat stream and readiness targets
	streamInterval := pflag.Duration("stream-interval", defaults.Stream.Interval, "Interval between heartbeat stream messages")
	databaseDSN := pflag.String("database-dsn", "", "Postgres DSN to ping for the database check (simulated when empty)")
	cacheAddr := pflag.String("cache-addr", "", "Redis address to ping for the cache check (simulated when empty)")

	// Security flags
	rateLimitEnabled := pflag.Bool("rate-limit-enabled", defaults.Security.RateLimit.Enabled, "Enable per-client rate limiting")
	rateLimitRPS := pflag.Int("rate-limit-rps", defaults.Security.RateLimit.Global.RequestsPerSecond, "Global rate limit requests per second")

	// Hot reload flags
	hotReload := pflag.Bool("hot-reload", defaults.HotReload.Enabled, "Reload log level and stream interval when the config file changes")
	hotReloadDebounce := pflag.Duration("hot-reload-debounce", defaults.HotReload.Debounce, "Debounce time for hot reload events")

	// TLS flags
	tlsEnabled := pflag.Bool("tls-enabled", defaults.TLS.Enabled, "Serve HTTPS")
	tlsCertFile := pflag.String("tls-cert-file", "", "TLS certificate file")
	tlsKeyFile := pflag.String("tls-key-file", "", "TLS private key file")

	pflag.Parse()

	cliFlags := &config.CLIFlags{
		Host:              host,
		Port:              port,
		MetricsPort:       metricsPort,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxRequestSize:    maxRequestSize,
		ShutdownTimeout:   shutdownTimeout,
		LogLevel:          logLevel,
		LogFormat:         logFormat,
		StreamInterval:    streamInterval,
		DatabaseDSN:       databaseDSN,
		CacheAddr:         cacheAddr,
		RateLimitEnabled:  rateLimitEnabled,
		RateLimitRPS:      rateLimitRPS,
		HotReload:         hotReload,
		HotReloadDebounce: hotReloadDebounce,
		TLSEnabled:        tlsEnabled,
		TLSCertFile:       tlsCertFile,
		TLSKeyFile:        tlsKeyFile,
	}

	// Load configuration with precedence (CLI > Env > File > Defaults)
	cfg, err := config.LoadConfig(*configFile, cliFlags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Reloads keep explicit CLI overrides on top of the file.
	srv, err := server.New(cfg, server.WithConfigLoader(func() (*config.Config, error) {
		return config.LoadConfig(*configFile, cliFlags)
	}))
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	logger := srv.Logger()

	var hotReloadManager *hotreload.Manager
	if cfg.HotReload.Enabled && cfg.ConfigFile != "" {
		hotReloadManager, err = srv.WatchConfig()
		if err != nil {
			logger.Fatal("Failed to start hot reload", zap.Error(err))
		}
	}

	if cfg.Security.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.String("strategy", cfg.Security.RateLimit.Strategy),
			zap.Int("rps", cfg.Security.RateLimit.Global.RequestsPerSecond),
		)
	}

	if err := srv.Start(); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}

	if hotReloadManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hotReloadManager.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shutdown hot reload manager", zap.Error(err))
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Serves GET /, /heartbeat, /health and the /ws/heartbeat stream.\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	pflag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_HOST, HEARTBEAT_PORT, HEARTBEAT_METRICS_PORT\n")
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_READ_TIMEOUT, HEARTBEAT_WRITE_TIMEOUT, HEARTBEAT_IDLE_TIMEOUT\n")
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_MAX_REQUEST_SIZE, HEARTBEAT_SHUTDOWN_TIMEOUT\n")
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_LOG_LEVEL, HEARTBEAT_LOG_FORMAT, HEARTBEAT_STREAM_INTERVAL\n")
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_DATABASE_DSN, HEARTBEAT_CACHE_ADDR\n")
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_HOT_RELOAD, HEARTBEAT_HOT_RELOAD_DEBOUNCE\n")
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_TLS_ENABLED, HEARTBEAT_TLS_CERT_FILE, HEARTBEAT_TLS_KEY_FILE\n")
	fmt.Fprintf(os.Stderr, "\nExample usage:\n")
	fmt.Fprintf(os.Stderr, "  %s\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --config ./heartbeat.yaml --log-level debug\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --database-dsn postgres://app@db/app?sslmode=disable --cache-addr redis:6379\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  HEARTBEAT_PORT=8081 %s\n", os.Args[0])
}

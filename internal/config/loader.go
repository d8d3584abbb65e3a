package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leslieo2/heartbeat-server/internal/constants"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration with precedence:
// 1. Explicit CLI flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, cliFlags *CLIFlags) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		if err := loadFromFile(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config.ConfigFile = configFile
	}

	loadFromEnv(config)

	if cliFlags != nil {
		overrideWithCLI(config, cliFlags)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// CLIFlags contains CLI flag values that can override configuration
// This struct is used to pass CLI flag values without using the flag package directly
type CLIFlags struct {
	Host              *string
	Port              *string
	MetricsPort       *string
	ReadTimeout       *time.Duration
	WriteTimeout      *time.Duration
	IdleTimeout       *time.Duration
	MaxRequestSize    *int64
	ShutdownTimeout   *time.Duration
	LogLevel          *string
	LogFormat         *string
	StreamInterval    *time.Duration
	DatabaseDSN       *string
	CacheAddr         *string
	RateLimitEnabled  *bool
	RateLimitRPS      *int
	HotReload         *bool
	HotReloadDebounce *time.Duration
	TLSEnabled        *bool
	TLSCertFile       *string
	TLSKeyFile        *string
}

// loadFromFile decodes a YAML or JSON file over the given configuration.
// Keys absent from the file keep their current values.
func loadFromFile(filePath string, config *Config) error {
	if !filepath.IsAbs(filePath) {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
		}
		filePath = absPath
	}

	if err := validateFilePath(filePath); err != nil {
		return fmt.Errorf("invalid config file path %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath) // #nosec G304 - file path validated by validateFilePath()
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
// Values that fail to parse are ignored.
func loadFromEnv(config *Config) {
	envString(constants.EnvHost, &config.Server.Host)
	envString(constants.EnvPort, &config.Server.Port)
	envString(constants.EnvMetricsPort, &config.Server.MetricsPort)
	envDuration(constants.EnvReadTimeout, &config.Server.ReadTimeout)
	envDuration(constants.EnvWriteTimeout, &config.Server.WriteTimeout)
	envDuration(constants.EnvIdleTimeout, &config.Server.IdleTimeout)
	if val := os.Getenv(constants.EnvMaxRequestSize); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Server.MaxRequestSize = size
		}
	}
	envDuration(constants.EnvShutdownTimeout, &config.Server.ShutdownTimeout)

	envString(constants.EnvLogLevel, &config.Observability.Logging.Level)
	envString(constants.EnvLogFormat, &config.Observability.Logging.Format)

	envDuration(constants.EnvStreamInterval, &config.Stream.Interval)
	envString(constants.EnvDatabaseDSN, &config.Readiness.Database.DSN)
	envString(constants.EnvCacheAddr, &config.Readiness.Cache.Addr)

	envBool(constants.EnvHotReload, &config.HotReload.Enabled)
	envDuration(constants.EnvHotReloadDebounce, &config.HotReload.Debounce)

	envBool(constants.EnvTLSEnabled, &config.TLS.Enabled)
	envString(constants.EnvTLSCertFile, &config.TLS.CertFile)
	envString(constants.EnvTLSKeyFile, &config.TLS.KeyFile)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			*dst = duration
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			*dst = enabled
		}
	}
}

// flagChanged reports whether the named flag was explicitly set on the command line.
func flagChanged(name string) bool {
	f := pflag.Lookup(name)
	return f != nil && f.Changed
}

// overrideWithCLI overrides configuration with CLI flag values
// Only explicitly set CLI flags override other configuration sources
func overrideWithCLI(config *Config, flags *CLIFlags) {
	if flags == nil {
		return
	}

	// Server configuration
	if flags.Host != nil && flagChanged("host") {
		config.Server.Host = *flags.Host
	}
	if flags.Port != nil && flagChanged("port") {
		config.Server.Port = *flags.Port
	}
	if flags.MetricsPort != nil && flagChanged("metrics-port") {
		config.Server.MetricsPort = *flags.MetricsPort
	}
	if flags.ReadTimeout != nil && flagChanged("read-timeout") {
		config.Server.ReadTimeout = *flags.ReadTimeout
	}
	if flags.WriteTimeout != nil && flagChanged("write-timeout") {
		config.Server.WriteTimeout = *flags.WriteTimeout
	}
	if flags.IdleTimeout != nil && flagChanged("idle-timeout") {
		config.Server.IdleTimeout = *flags.IdleTimeout
	}
	if flags.MaxRequestSize != nil && flagChanged("max-request-size") {
		config.Server.MaxRequestSize = *flags.MaxRequestSize
	}
	if flags.ShutdownTimeout != nil && flagChanged("shutdown-timeout") {
		config.Server.ShutdownTimeout = *flags.ShutdownTimeout
	}

	// Logging
	if flags.LogLevel != nil && flagChanged("log-level") {
		config.Observability.Logging.Level = *flags.LogLevel
	}
	if flags.LogFormat != nil && flagChanged("log-format") {
		config.Observability.Logging.Format = *flags.LogFormat
	}

	// Stream and readiness
	if flags.StreamInterval != nil && flagChanged("stream-interval") {
		config.Stream.Interval = *flags.StreamInterval
	}
	if flags.DatabaseDSN != nil && flagChanged("database-dsn") {
		config.Readiness.Database.DSN = *flags.DatabaseDSN
	}
	if flags.CacheAddr != nil && flagChanged("cache-addr") {
		config.Readiness.Cache.Addr = *flags.CacheAddr
	}

	// Security flags
	if flags.RateLimitEnabled != nil && flagChanged("rate-limit-enabled") {
		config.Security.RateLimit.Enabled = *flags.RateLimitEnabled
	}
	if flags.RateLimitRPS != nil && flagChanged("rate-limit-rps") {
		if config.Security.RateLimit.Global == nil {
			config.Security.RateLimit.Global = &RateLimit{
				RequestsPerSecond: *flags.RateLimitRPS,
				BurstSize:         *flags.RateLimitRPS * 2,
				WindowSize:        time.Minute,
			}
		} else {
			config.Security.RateLimit.Global.RequestsPerSecond = *flags.RateLimitRPS
		}
	}

	// Hot reload
	if flags.HotReload != nil && flagChanged("hot-reload") {
		config.HotReload.Enabled = *flags.HotReload
	}
	if flags.HotReloadDebounce != nil && flagChanged("hot-reload-debounce") {
		config.HotReload.Debounce = *flags.HotReloadDebounce
	}

	// TLS configuration
	if flags.TLSEnabled != nil && flagChanged("tls-enabled") {
		config.TLS.Enabled = *flags.TLSEnabled
	}
	if flags.TLSCertFile != nil && flagChanged("tls-cert-file") {
		config.TLS.CertFile = *flags.TLSCertFile
	}
	if flags.TLSKeyFile != nil && flagChanged("tls-key-file") {
		config.TLS.KeyFile = *flags.TLSKeyFile
	}
}

// validateFilePath checks if the file path is safe to read
func validateFilePath(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	cleanPath := filepath.Clean(absPath)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal attempts")
	}

	return nil
}

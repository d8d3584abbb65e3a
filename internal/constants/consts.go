package constants

import "time"

// Environment variable constants
const (
	EnvHost              = "HEARTBEAT_HOST"
	EnvPort              = "HEARTBEAT_PORT"
	EnvMetricsPort       = "HEARTBEAT_METRICS_PORT"
	EnvReadTimeout       = "HEARTBEAT_READ_TIMEOUT"
	EnvWriteTimeout      = "HEARTBEAT_WRITE_TIMEOUT"
	EnvIdleTimeout       = "HEARTBEAT_IDLE_TIMEOUT"
	EnvMaxRequestSize    = "HEARTBEAT_MAX_REQUEST_SIZE"
	EnvShutdownTimeout   = "HEARTBEAT_SHUTDOWN_TIMEOUT"
	EnvLogLevel          = "HEARTBEAT_LOG_LEVEL"
	EnvLogFormat         = "HEARTBEAT_LOG_FORMAT"
	EnvStreamInterval    = "HEARTBEAT_STREAM_INTERVAL"
	EnvDatabaseDSN       = "HEARTBEAT_DATABASE_DSN"
	EnvCacheAddr         = "HEARTBEAT_CACHE_ADDR"
	EnvHotReload         = "HEARTBEAT_HOT_RELOAD"
	EnvHotReloadDebounce = "HEARTBEAT_HOT_RELOAD_DEBOUNCE"
	EnvTLSEnabled        = "HEARTBEAT_TLS_ENABLED"
	EnvTLSCertFile       = "HEARTBEAT_TLS_CERT_FILE"
	EnvTLSKeyFile        = "HEARTBEAT_TLS_KEY_FILE"
)

// HTTP method constants
const (
	MethodGET     = "GET"
	MethodPOST    = "POST"
	MethodPUT     = "PUT"
	MethodDELETE  = "DELETE"
	MethodPATCH   = "PATCH"
	MethodOPTIONS = "OPTIONS"
	MethodHEAD    = "HEAD"
)

// HTTP header constants
const (
	HeaderContentType    = "Content-Type"
	HeaderOrigin         = "Origin"
	HeaderVary           = "Vary"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXRequestedWith = "X-Requested-With"
)

// Content type constants
const (
	ContentTypeJSON = "application/json"
)

// CORS headers
const (
	HeaderAccessControlAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAccessControlAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAccessControlAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAccessControlMaxAge           = "Access-Control-Max-Age"
	HeaderAccessControlRequestHeaders   = "Access-Control-Request-Headers"
)

// Rate limiting strategy constants
const (
	RateLimitStrategyIP = "ip"
)

// Rate limiting headers
const (
	HeaderXRateLimitLimit     = "X-RateLimit-Limit"
	HeaderXRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderXRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter          = "Retry-After"
)

// Rate limiter internal constants
const (
	// RateLimitCleanupInterval is the interval for cleaning up rate limit cache
	RateLimitCleanupInterval = 5 * time.Minute
	// RateLimitMaxCacheSize is the maximum size of the rate limit cache
	RateLimitMaxCacheSize = 10000
)

// HotReloadDebounce is the default quiet period before a reload runs.
const HotReloadDebounce = 500 * time.Millisecond

// Error code constants
const (
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// Route paths
const (
	PathRoot      = "/"
	PathHeartbeat = "/heartbeat"
	PathHealth    = "/health"
	PathStream    = "/ws/heartbeat"
	PathMetrics   = "/metrics"
)

// Report values
const (
	StatusAlive     = "alive"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	ServiceConnected = "connected"

	StreamTypeHeartbeat = "heartbeat"

	MessageRoot      = "Backend server is running"
	MessageHeartbeat = "Server is running"
)

// Readiness check names
const (
	CheckDatabase = "database"
	CheckCache    = "cache"
)

// TimestampLayout renders ISO-8601 timestamps with microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

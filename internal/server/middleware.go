package server

import (
	"net/http"

	"github.com/leslieo2/heartbeat-server/internal/server/middleware"
)

// applyMiddleware wraps the router. Wrappers are applied innermost first, so
// logging sees every response, including rejections by later stages.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = middleware.RequestSizeLimitMiddleware(s.config.Server.MaxRequestSize)(handler)

	handler = s.rateLimiter.Middleware(handler)

	handler = middleware.SecurityHeadersMiddleware(s.config.Security.Headers, s.config.TLS.Enabled)(handler)

	if s.config.Security.CORS.Enabled {
		handler = middleware.NewCORSMiddleware(s.config.Security.CORS).Handler(handler)
	}

	if s.config.Observability.Metrics.Enabled {
		handler = middleware.MetricsMiddleware(s.metrics)(handler)
	}

	handler = middleware.LoggingMiddleware(s.logger.Logger)(handler)

	return handler
}

package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// SecurityHeadersMiddleware creates a security headers middleware
func SecurityHeadersMiddleware(cfg config.SecurityHeaders, tlsEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			if tlsEnabled && cfg.HSTSMaxAge > 0 {
				w.Header().Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
			}
			if cfg.ContentSecurityPolicy != "" {
				w.Header().Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}

			if len(cfg.AllowedHosts) > 0 && !slices.Contains(cfg.AllowedHosts, hostOnly(r.Host)) {
				w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "FORBIDDEN",
					"message": "Host not allowed",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

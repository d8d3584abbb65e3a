package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/constants"
)

// CORSMiddleware applies a cross-origin policy to every response.
type CORSMiddleware struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(cfg config.CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
}

func (c *CORSMiddleware) originAllowed(origin string) bool {
	return slices.Contains(c.AllowedOrigins, "*") || slices.Contains(c.AllowedOrigins, origin)
}

// allowHeaders resolves the Access-Control-Allow-Headers value. A "*" entry
// echoes whatever the preflight asked for, since browsers ignore a literal
// wildcard on credentialed requests.
func (c *CORSMiddleware) allowHeaders(r *http.Request) string {
	if slices.Contains(c.AllowedHeaders, "*") {
		if requested := r.Header.Get(constants.HeaderAccessControlRequestHeaders); requested != "" {
			return requested
		}
		return "*"
	}
	return strings.Join(c.AllowedHeaders, ", ")
}

// Handler returns the CORS middleware handler
func (c *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get(constants.HeaderOrigin)
		w.Header().Add(constants.HeaderVary, constants.HeaderOrigin)

		if origin != "" && c.originAllowed(origin) {
			w.Header().Set(constants.HeaderAccessControlAllowOrigin, origin)
			if len(c.AllowedMethods) > 0 {
				w.Header().Set(constants.HeaderAccessControlAllowMethods, strings.Join(c.AllowedMethods, ", "))
			}
			if headers := c.allowHeaders(r); headers != "" {
				w.Header().Set(constants.HeaderAccessControlAllowHeaders, headers)
			}
			if c.AllowCredentials {
				w.Header().Set(constants.HeaderAccessControlAllowCredentials, "true")
			}
			if c.MaxAge > 0 {
				w.Header().Set(constants.HeaderAccessControlMaxAge, strconv.Itoa(c.MaxAge))
			}
		}

		// Handle preflight requests
		if r.Method == constants.MethodOPTIONS {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

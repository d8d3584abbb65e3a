// Package security holds request admission controls.
package security

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leslieo2/heartbeat-server/internal/config"
	"github.com/leslieo2/heartbeat-server/internal/constants"
	"github.com/leslieo2/heartbeat-server/internal/observability"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters *cache.Cache
	config   config.RateLimitConfig
	skip     map[string]struct{}
	logger   *observability.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

type RateLimitStatus struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Reset      time.Time     `json:"reset"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// NewRateLimiter builds a limiter. Requests for skipPaths are never limited.
// Call Stop to end the background eviction loop.
func NewRateLimiter(cfg config.RateLimitConfig, logger *observability.Logger, skipPaths ...string) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = constants.RateLimitCleanupInterval
	}
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = constants.RateLimitMaxCacheSize
	}

	rl := newRateLimiter(cfg, logger, skipPaths)
	if cfg.Enabled {
		go rl.periodicCleanup()
	}
	return rl
}

func newRateLimiter(cfg config.RateLimitConfig, logger *observability.Logger, skipPaths []string) *RateLimiter {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return &RateLimiter{
		limiters: cache.New(cfg.CleanupInterval, cfg.CleanupInterval*2),
		config:   cfg,
		skip:     skip,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Stop ends the background eviction loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) periodicCleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict(rl.config.MaxCacheSize)
		case <-rl.stop:
			return
		}
	}
}

// evict drops random entries once the cache outgrows maxSize, leaving 10%
// headroom so eviction does not run on every tick.
func (rl *RateLimiter) evict(maxSize int) int {
	currentSize := rl.limiters.ItemCount()
	if currentSize <= maxSize {
		return 0
	}

	toRemove := currentSize - maxSize + maxSize/10

	keys := make([]string, 0, currentSize)
	for key := range rl.limiters.Items() {
		keys = append(keys, key)
	}
	rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	removed := 0
	for ; removed < toRemove && removed < len(keys); removed++ {
		rl.limiters.Delete(keys[removed])
	}
	return removed
}

func (rl *RateLimiter) limiter(identifier string, limit *config.RateLimit) *rate.Limiter {
	if item, found := rl.limiters.Get(identifier); found {
		return item.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(limit.RequestsPerSecond), limit.BurstSize)
	if err := rl.limiters.Add(identifier, limiter, cache.DefaultExpiration); err != nil {
		// Lost a race with another request for the same identifier.
		if item, found := rl.limiters.Get(identifier); found {
			return item.(*rate.Limiter)
		}
	}
	return limiter
}

// Allow consumes one token for identifier.
func (rl *RateLimiter) Allow(identifier string, limit *config.RateLimit) bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.limiter(identifier, limit).Allow()
}

// Status reports the bucket state for identifier without consuming a token.
func (rl *RateLimiter) Status(identifier string, limit *config.RateLimit) RateLimitStatus {
	now := time.Now()
	if !rl.config.Enabled {
		return RateLimitStatus{
			Limit:     limit.BurstSize,
			Remaining: limit.BurstSize,
			Reset:     now,
		}
	}

	tokens := rl.limiter(identifier, limit).TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	rps := float64(limit.RequestsPerSecond)
	missing := float64(limit.BurstSize) - tokens
	status := RateLimitStatus{
		Limit:     limit.BurstSize,
		Remaining: remaining,
		Reset:     now.Add(time.Duration(missing / rps * float64(time.Second))),
	}
	if tokens < 1 {
		wait := time.Duration((1 - tokens) / rps * float64(time.Second))
		status.RetryAfter = max(wait, time.Second)
	}
	return status
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		if _, skip := rl.skip[r.URL.Path]; skip {
			next.ServeHTTP(w, r)
			return
		}

		identifier := rl.getIdentifier(r)
		limit := rl.getRateLimit()

		allowed := rl.Allow(identifier, limit)
		status := rl.Status(identifier, limit)
		setRateLimitHeaders(w, status)

		if !allowed {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("client", identifier),
				zap.String("path", r.URL.Path),
			)
			writeRateLimitExceeded(w, status)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, status RateLimitStatus) {
	w.Header().Set(constants.HeaderXRateLimitLimit, strconv.Itoa(status.Limit))
	w.Header().Set(constants.HeaderXRateLimitRemaining, strconv.Itoa(status.Remaining))
	w.Header().Set(constants.HeaderXRateLimitReset, strconv.FormatInt(status.Reset.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, status RateLimitStatus) {
	retryAfter := int(math.Ceil(status.RetryAfter.Seconds()))
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":       constants.ErrorCodeRateLimitExceeded,
		"message":     fmt.Sprintf("Rate limit exceeded. Try again in %ds", retryAfter),
		"retry_after": retryAfter,
	})
}

func (rl *RateLimiter) getIdentifier(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

// ClientIP returns the originating client address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get(constants.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get(constants.HeaderXRealIP)); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) getRateLimit() *config.RateLimit {
	if rl.config.ByIP != nil {
		return rl.config.ByIP
	}
	return rl.config.Global
}

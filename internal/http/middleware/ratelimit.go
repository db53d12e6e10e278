package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// RateLimiter throttles callers per IP before authentication and per user after it
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	ipLimiter      func(http.Handler) http.Handler
	userLimiter    func(http.Handler) http.Handler
	whitelistIPs   map[string]bool
	whitelistPaths map[string]bool
}

func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:            cfg,
		logger:         logger,
		whitelistIPs:   make(map[string]bool, len(cfg.WhitelistIPs)),
		whitelistPaths: make(map[string]bool, len(cfg.WhitelistPaths)),
	}

	for _, ip := range cfg.WhitelistIPs {
		rl.whitelistIPs[ip] = true
	}
	for _, path := range cfg.WhitelistPaths {
		rl.whitelistPaths[path] = true
	}

	rl.ipLimiter = httprate.Limit(
		cfg.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return "ip:" + clientIP(r), nil
		}),
		httprate.WithLimitHandler(rl.rejected),
	)

	rl.userLimiter = httprate.Limit(
		cfg.RequestsPerMinuteAuth,
		time.Minute,
		httprate.WithKeyFuncs(keyByUserOrIP),
		httprate.WithLimitHandler(rl.rejected),
	)

	if cfg.Enabled {
		logger.Info("Rate limiter initialized",
			zap.Int("requests_per_minute", cfg.RequestsPerMinute),
			zap.Int("requests_per_minute_auth", cfg.RequestsPerMinuteAuth),
			zap.Strings("whitelist_ips", cfg.WhitelistIPs),
			zap.Strings("whitelist_paths", cfg.WhitelistPaths),
		)
	}

	return rl
}

// Limit applies the per-user budget to authenticated requests and the per-IP budget otherwise.
// It must run after Authenticate to see the user.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	ipLimited := rl.ipLimiter(next)
	userLimited := rl.userLimiter(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := auth.FromContext(r.Context()); ok {
			userLimited.ServeHTTP(w, r)
			return
		}
		ipLimited.ServeHTTP(w, r)
	})
}

// LimitByIP applies the per-IP budget (for use before auth)
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	ipLimited := rl.ipLimiter(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		ipLimited.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) exempt(r *http.Request) bool {
	return rl.isPathWhitelisted(r.URL.Path) || rl.whitelistIPs[clientIP(r)]
}

func keyByUserOrIP(r *http.Request) (string, error) {
	if userCtx, ok := auth.FromContext(r.Context()); ok {
		return "user:" + userCtx.UserID.String(), nil
	}
	return "ip:" + clientIP(r), nil
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the socket address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// isPathWhitelisted matches exact paths and prefixes written as /prefix/*
func (rl *RateLimiter) isPathWhitelisted(path string) bool {
	if rl.whitelistPaths[path] {
		return true
	}

	for wp := range rl.whitelistPaths {
		if prefix, ok := strings.CutSuffix(wp, "/*"); ok && strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func (rl *RateLimiter) rejected(w http.ResponseWriter, r *http.Request) {
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("client_ip", clientIP(r)),
	}
	if userCtx, ok := auth.FromContext(r.Context()); ok {
		fields = append(fields, zap.String("user_id", userCtx.UserID.String()))
	}
	rl.logger.Warn("rate limit exceeded", fields...)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeRateLimited,
		Title:  "Too Many Requests",
		Status: http.StatusTooManyRequests,
		Detail: "Too many requests. Please try again later.",
	})
}

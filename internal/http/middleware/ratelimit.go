package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/ratelimit"
	"github.com/princekumarofficial/imgbed/internal/utils/response"
)

const (
	ActionUpload  = "upload"
	ActionShorten = "shorten"
)

type RateLimitConfig struct {
	limiters map[string]*ratelimit.TokenBucket
}

// NewRateLimitConfig builds the per-action limiters. A nil client or a zero
// limit leaves that action unlimited.
func NewRateLimitConfig(redisClient *redis.Client, limits config.RateLimit) *RateLimitConfig {
	rlc := &RateLimitConfig{
		limiters: make(map[string]*ratelimit.TokenBucket),
	}
	if redisClient == nil {
		return rlc
	}

	if limits.Upload > 0 {
		rlc.limiters[ActionUpload] = ratelimit.NewTokenBucket(redisClient, limits.Upload)
	}
	if limits.Shorten > 0 {
		rlc.limiters[ActionShorten] = ratelimit.NewTokenBucket(redisClient, limits.Shorten)
	}

	return rlc
}

// RateLimitMiddleware limits action per client IP.
func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rlc == nil {
			return next
		}
		limiter, exists := rlc.limiters[action]
		if !exists {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)

			res, err := limiter.Allow(r.Context(), client, action)
			if err != nil {
				slog.Error("rate limit check failed",
					slog.String("action", action),
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.Error("rate limit check failed"))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", "60")

			if !res.Allowed {
				slog.Warn("rate limit exceeded", slog.String("action", action), slog.String("ip", client))
				response.WriteJSON(w, http.StatusTooManyRequests, response.Error("rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the address reported by the edge proxy.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

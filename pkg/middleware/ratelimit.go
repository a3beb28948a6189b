package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for a fixed-window rate limiter.
type RateLimitConfig struct {
	// Name distinguishes the limiter's keyspace, e.g. "login".
	Name string
	// Limit is the maximum number of requests per window.
	Limit int
	// Window is the length of the fixed window.
	Window time.Duration
}

// RateLimit limits requests per client IP using a fixed window counted in
// Redis. The counter and its expiry are set in one atomic script so a crash
// between INCR and EXPIRE cannot leave an immortal key. Redis being down
// fails open; availability beats throttling here.
func RateLimit(cfg RateLimitConfig, rdb *redis.Client, logger *slog.Logger) func(http.Handler) http.Handler {
	script := redis.NewScript(`
		local count = redis.call('INCR', KEYS[1])
		if count == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		local ttl = redis.call('PTTL', KEYS[1])
		return { count, ttl }
	`)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s:%s", cfg.Name, clientIP(r))

			vals, err := script.Run(r.Context(), rdb, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
			if err != nil || len(vals) != 2 {
				if err != nil {
					logger.WarnContext(r.Context(), "rate limiter unavailable, failing open",
						slog.String("limiter", cfg.Name),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			count, ttlMs := vals[0], vals[1]
			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				retryAfter := (ttlMs + 999) / 1000
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				writeAuthError(w, http.StatusTooManyRequests, "too many requests, slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

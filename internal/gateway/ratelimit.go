package gateway

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter enforces a fixed-window request limit per client IP using
// a redis counter. If redis is unreachable the limiter fails open: a
// degraded limiter must not take the whole API down with it.
type RateLimiter struct {
	redis  *redis.Client
	max    int
	window time.Duration
	logger *zap.Logger
}

func NewRateLimiter(redisClient *redis.Client, max int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{redis: redisClient, max: max, window: window, logger: logger}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:%s", clientIP(r))

		count, err := l.redis.Incr(r.Context(), key).Result()
		if err != nil {
			l.logger.Warn("rate limit check failed, allowing request", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := l.redis.Expire(r.Context(), key, l.window).Err(); err != nil {
				l.logger.Warn("failed to set rate limit window", zap.Error(err))
			}
		}

		if count > int64(l.max) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(l.window.Seconds())))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

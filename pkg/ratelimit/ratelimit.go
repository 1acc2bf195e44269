// Package ratelimit provides a redis-backed fixed-window rate limiter for
// the credential endpoints.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apphttp "github.com/shillspot/shillspot/pkg/app/http"
)

const keyPrefix = "ratelimit:"

// Limiter counts requests per client IP in fixed windows. State lives in
// redis so every API replica shares the same counters.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLimiter connects to redis at the given URL and returns a limiter
// allowing limit requests per window.
func NewLimiter(url string, limit int, window time.Duration, logger *zap.Logger) (*Limiter, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &Limiter{
		rdb:    redis.NewClient(opt),
		limit:  limit,
		window: window,
		logger: logger,
	}, nil
}

// Middleware rejects requests over the limit with 429. Redis outages fail
// open: losing rate limiting is better than losing logins.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyPrefix + clientIP(r)

		count, err := l.rdb.Incr(r.Context(), key).Result()
		if err != nil {
			l.logger.Warn("rate limiter unavailable, allowing request",
				zap.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.rdb.Expire(r.Context(), key, l.window)
		}

		if count > int64(l.limit) {
			apphttp.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error": fmt.Sprintf("rate limit exceeded: %d requests per %v", l.limit, l.window),
				"code":  http.StatusTooManyRequests,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close releases the redis connection.
func (l *Limiter) Close() error {
	return l.rdb.Close()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

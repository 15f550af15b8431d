package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/config"
)

// RateLimiter enforces a per-principal, fixed-window call limit backed by
// Redis INCR/EXPIRE, so the limit holds across every server instance
// rather than per-process — the multi-instance generalization of this
// file's original in-memory sliding window.
type RateLimiter struct {
	rdb    *redis.Client
	cfg    config.RateLimitConfig
	logger *slog.Logger
}

// NewRateLimiter creates a rate limiter backed by the given Redis client.
func NewRateLimiter(rdb *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	if cfg.MaxCallsPerMinute <= 0 {
		cfg.MaxCallsPerMinute = 60
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = cfg.MaxCallsPerMinute * 2
	}
	return &RateLimiter{rdb: rdb, cfg: cfg, logger: slog.Default().With("component", "rate_limiter")}
}

// Allow increments the current minute's window for key and reports
// whether the caller is still within the burst allowance. A Redis error
// fails open — an unreachable cache should degrade to "no limiting", not
// take the API down.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	window := time.Now().UTC().Format("200601021504")
	redisKey := fmt.Sprintf("ratelimit:%s:%s", key, window)

	count, err := rl.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.logger.Warn("rate limiter redis error, failing open", "error", err)
		return true
	}
	if count == 1 {
		rl.rdb.Expire(ctx, redisKey, 2*time.Minute)
	}

	return count <= int64(rl.cfg.BurstSize)
}

// Middleware keys the limiter off the authenticated principal's subject
// (internal/authscope.FromContext), falling back to the remote address for
// unauthenticated requests.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if p, ok := authscope.FromContext(r.Context()); ok {
			key = p.Subject
		}

		if !rl.Allow(r.Context(), key) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded","retry_after_seconds":60}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

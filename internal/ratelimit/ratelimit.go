// Package ratelimit is a Redis-backed fixed-window request limiter with a
// penalty block once the window is exhausted.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxRequests per window per client.
	DefaultMaxRequests = 100
	// DefaultWindow is the counting window.
	DefaultWindow = 15 * time.Minute
	// DefaultBlock is how long a client stays blocked after exhausting
	// the window.
	DefaultBlock = time.Hour
)

// Limiter counts requests per key in Redis. Stale counters and expired
// blocks clean themselves up through key TTLs.
type Limiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	block  time.Duration
}

// New creates a limiter with the default budget.
func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, max: DefaultMaxRequests, window: DefaultWindow, block: DefaultBlock}
}

// NewWithBudget creates a limiter with a custom budget, used in tests.
func NewWithBudget(rdb *redis.Client, max int, window, block time.Duration) *Limiter {
	return &Limiter{rdb: rdb, max: max, window: window, block: block}
}

// Allow reports whether the client identified by key may proceed. A client
// that exhausts its window gets blocked for the penalty duration.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	blockKey := fmt.Sprintf("block:%s", key)
	blocked, err := l.rdb.Exists(ctx, blockKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	if blocked > 0 {
		return false, nil
	}

	countKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := l.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment counter: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, countKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set window expiry: %w", err)
		}
	}
	if count > int64(l.max) {
		if err := l.rdb.Set(ctx, blockKey, "1", l.block).Err(); err != nil {
			return false, fmt.Errorf("failed to set block: %w", err)
		}
		return false, nil
	}
	return true, nil
}

// Middleware limits by client IP. Fails open: if Redis is unreachable the
// request goes through and the error is only logged.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		allowed, err := l.Allow(r.Context(), ip)
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"egress/internal/errs"
)

// RateLimiter is a per-client token bucket limiter, used in front of
// process_file (spec.md section 6), the most expensive operation.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing limit requests per window,
// per client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

// DefaultRateLimiter allows 100 requests per minute per client.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(100, time.Minute)
}

// RateLimitMiddleware limits requests by client IP.
func (rl *RateLimiter) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := rl.getClientID(r)
		if !rl.clientLimiter(clientID).Allow() {
			rl.respondRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) clientLimiter(clientID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[clientID]
	if !ok {
		lim = rate.NewLimiter(rl.r, rl.burst)
		rl.limiters[clientID] = lim
	}
	return lim
}

func (rl *RateLimiter) getClientID(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (rl *RateLimiter) respondRateLimited(w http.ResponseWriter) {
	egErr := errs.New(errs.ValidationError, "rate limit exceeded")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": egErr.Message,
		"code":  "rate_limit_exceeded",
	})
}

package auth

import (
	"sync"
	"time"
)

// RateLimiter is an in-process counter with a fixed time window per key.
// Counters reset when their window expires; there is no distributed state.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	counts map[string]*windowCount
	now    func() time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewRateLimiter creates a limiter allowing max requests per window per key.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		counts: make(map[string]*windowCount),
		now:    time.Now,
	}
}

// Allow records one request for key and reports whether it is within the
// window's budget.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	c, ok := r.counts[key]
	if !ok || now.Sub(c.start) >= r.window {
		r.counts[key] = &windowCount{start: now, n: 1}
		return true
	}
	c.n++
	return c.n <= r.max
}

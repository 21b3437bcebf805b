package hygro

import (
	"sync"
	"time"
)

// RateLimitWindow is the minimum time between two published readings on
// the same topic.
const RateLimitWindow = 10 * time.Second

// RateLimiter admits at most one reading per topic per RateLimitWindow.
//
// The last accepted time per topic is kept for the life of the process.
// There is one entry per topic ever seen, so the map is bounded by
// devices × metrics.
//
// Thread Safety: All methods are safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	last   map[string]time.Time
	window time.Duration
}

// NewRateLimiter creates a RateLimiter with the fixed RateLimitWindow.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		last:   make(map[string]time.Time),
		window: RateLimitWindow,
	}
}

// ShouldPublish reports whether a reading on topic at now may be published.
//
// The first reading on a topic is always accepted. Later readings are
// accepted once at least the window has elapsed since the last accepted
// one; the accepted time is then recorded. A suppressed reading leaves the
// recorded time unchanged.
func (r *RateLimiter) ShouldPublish(topic string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, seen := r.last[topic]; seen && now.Sub(last) < r.window {
		return false
	}
	r.last[topic] = now
	return true
}

// Len returns the number of topics tracked.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.last)
}

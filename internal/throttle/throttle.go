// Package throttle rate-limits anonymous clients per identity.
package throttle

import (
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLimit is the number of requests admitted per identity per window.
const DefaultLimit = 100

// DefaultWindow is the throttle accounting window.
const DefaultWindow = time.Hour

// Gate admits or rejects requests per anonymous client identity (source
// address or anonymous session key). Each identity gets its own token
// bucket holding Limit tokens that refill over Window, so a sustained
// client levels out at Limit requests per window while bursts up to Limit
// are allowed. The limiter map is the only shared mutable state on the
// read path; a race can slightly over-admit but never undercounts a
// client into lockout.
type Gate struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewGate(limit int, window time.Duration) *Gate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gate{
		limit:    limit,
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// NewGateFromEnv reads THROTTLE_LIMIT (requests per hour) with the
// default applied on absence or a bad value.
func NewGateFromEnv() *Gate {
	limit := DefaultLimit
	if v := os.Getenv("THROTTLE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return NewGate(limit, DefaultWindow)
}

// Admit reports whether a request from identity may proceed. Rejections
// are reported to the caller, never silently dropped.
func (g *Gate) Admit(identity string) bool {
	g.mu.Lock()
	lim, ok := g.limiters[identity]
	if !ok {
		lim = rate.NewLimiter(rate.Every(g.window/time.Duration(g.limit)), g.limit)
		g.limiters[identity] = lim
	}
	g.mu.Unlock()

	return lim.Allow()
}

// RetryAfter is the wait to suggest to a rejected client: one token's
// refill interval.
func (g *Gate) RetryAfter() time.Duration {
	return g.window / time.Duration(g.limit)
}

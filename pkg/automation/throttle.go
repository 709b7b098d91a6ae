package automation

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	throttleMaxKeys = 1024
	throttleIdle    = 15 * time.Minute
)

// loginThrottle limits login attempts per session key. Limiters outlive
// Close so a re-initialized key cannot reset its budget.
type loginThrottle struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*throttleEntry
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newLoginThrottle returns nil when perMinute is zero, which disables
// throttling.
func newLoginThrottle(perMinute float64, burst int) *loginThrottle {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &loginThrottle{
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		limiters: make(map[string]*throttleEntry),
	}
}

func (t *loginThrottle) Allow(key string, now time.Time) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.limiters[key]
	if !ok {
		if len(t.limiters) >= throttleMaxKeys {
			t.prune(now)
		}
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// prune drops limiters idle long enough to have refilled.
func (t *loginThrottle) prune(now time.Time) {
	for key, e := range t.limiters {
		if now.Sub(e.lastSeen) > throttleIdle {
			delete(t.limiters, key)
		}
	}
}

// Package ratelimit keeps one token bucket per key, driven by an injectable clock.
package ratelimit

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// once the map holds pruneAbove buckets, those idle for idleAfter are dropped
const (
	pruneAbove = 1024
	idleAfter  = 10 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	capacity float64
	refill   float64
	lastSeen time.Time
}

// Limiter is a keyed token bucket. Buckets are created lazily, full.
type Limiter struct {
	mu    sync.Mutex
	clock clock.Clock
	m     map[string]*entry
}

// New returns a limiter on the wall clock.
func New() *Limiter { return NewWithClock(clock.New()) }

// NewWithClock returns a limiter driven by clk.
func NewWithClock(clk clock.Clock) *Limiter {
	return &Limiter{clock: clk, m: make(map[string]*entry)}
}

// Allow returns true if one token can be consumed for key.
// A non-positive capacity disables limiting for the call.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	if capacity <= 0 {
		return true
	}
	now := l.clock.Now()
	burst := int(capacity)
	if burst < 1 {
		burst = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[key]
	if !ok {
		if len(l.m) >= pruneAbove {
			l.pruneLocked(now)
		}
		e = &entry{
			limiter:  rate.NewLimiter(rate.Limit(refillPerSec), burst),
			capacity: capacity,
			refill:   refillPerSec,
		}
		l.m[key] = e
	} else if e.capacity != capacity || e.refill != refillPerSec {
		e.limiter.SetLimitAt(now, rate.Limit(refillPerSec))
		e.limiter.SetBurstAt(now, burst)
		e.capacity, e.refill = capacity, refillPerSec
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Reset forgets the bucket for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) pruneLocked(now time.Time) {
	for k, e := range l.m {
		if now.Sub(e.lastSeen) > idleAfter {
			delete(l.m, k)
		}
	}
}

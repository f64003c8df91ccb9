package ratelimit

// Per-key rate limiting for inbound chat traffic. Limiters are kept in a
// bounded registry and evicted after a period of inactivity, so the map
// cannot grow for the lifetime of the process.

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const evictAfter = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter hands out one token-bucket limiter per key.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewKeyedLimiter allows eventsPerMinute sustained events per key with a
// burst of burst.
func NewKeyedLimiter(eventsPerMinute int, burst int) *KeyedLimiter {
	if eventsPerMinute <= 0 {
		eventsPerMinute = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &KeyedLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(float64(eventsPerMinute) / 60.0),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether an event for key may proceed now.
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now

	k.evictLocked(now)
	return e.limiter.Allow()
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *KeyedLimiter) evictLocked(now time.Time) {
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > evictAfter {
			delete(k.entries, key)
		}
	}
}

// Package ratelimit is a sliding-window limiter keyed by caller.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewLimiter allows limit events per key in any window. A limit of zero or
// less allows everything.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		hits:   map[string][]time.Time{},
	}
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allow records an event for key at now if it fits in the window.
func (l *Limiter) Allow(key string, now time.Time) Result {
	if l.limit <= 0 {
		return Result{Allowed: true}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.recent(key, now)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return Result{
			Allowed: false,
			Limit:   l.limit,
			ResetAt: recent[0].Add(l.window),
		}
	}
	recent = append(recent, now)
	l.hits[key] = recent
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(recent),
		ResetAt:   recent[0].Add(l.window),
	}
}

// Sweep forgets keys with no events inside the window.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.hits {
		if recent := l.recent(key, now); len(recent) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = recent
		}
	}
}

func (l *Limiter) recent(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	history := l.hits[key]
	kept := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

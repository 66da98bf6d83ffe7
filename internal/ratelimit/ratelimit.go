package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window request limiter keyed by endpoint.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type Config struct {
	RequestsPerMinute int
	// CleanupInterval defaults to five minutes.
	CleanupInterval time.Duration
}

func New(cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 60
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	l := &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   time.Minute,
		stop:     make(chan struct{}),
	}
	go l.cleanup(interval)
	return l
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	fresh := l.prune(key, now.Add(-l.window))

	if len(fresh) >= l.limit {
		return false
	}

	l.requests[key] = append(fresh, now)
	return true
}

func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cnt := len(l.prune(key, time.Now().Add(-l.window)))
	if rem := l.limit - cnt; rem > 0 {
		return rem
	}
	return 0
}

// ResetTime reports when the oldest request in the window expires.
func (l *Limiter) ResetTime(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.prune(key, time.Now().Add(-l.window))
	if len(ts) == 0 {
		return time.Now()
	}
	// timestamps are appended in order
	return ts[0].Add(l.window)
}

// Stop ends the background cleanup. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// prune drops expired timestamps for key in place. Caller holds mu.
func (l *Limiter) prune(key string, cutoff time.Time) []time.Time {
	old := l.requests[key]
	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	l.requests[key] = fresh
	return fresh
}

func (l *Limiter) cleanup(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-tick.C:
			l.mu.Lock()
			cutoff := time.Now().Add(-l.window)
			for key := range l.requests {
				if len(l.prune(key, cutoff)) == 0 {
					delete(l.requests, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

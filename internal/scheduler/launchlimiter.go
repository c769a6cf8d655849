package scheduler

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// LaunchLimiter is a token-bucket limit on process-mode launches: each
// launch takes a token, and tokens come back both over time (at
// refillRate) and when a launch completes (Release), capped at
// capacity. It bounds launch bursts and rate, not the number of
// processes running at once. It is adapted from a hybrid rate limiter
// that combined token-
// and leaky-bucket admission: here only the token-bucket half is kept
// (a scheduler tick either launches a process now or it doesn't; there
// is no request queue worth leaking at a fixed rate), since launches
// that don't fit the budget simply wait for next tick's conditions to
// be re-evaluated rather than queuing.
type LaunchLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	allowed metric.Int64Counter
	denied  metric.Int64Counter
}

// NewLaunchLimiter builds a limiter that permits a burst of
// burstCapacity process launches, refilling at refillRate tokens/sec
// plus one token per released launch.
func NewLaunchLimiter(burstCapacity int, refillRate float64, meter metric.Meter) *LaunchLimiter {
	var allowed, denied metric.Int64Counter
	if meter != nil {
		allowed, _ = meter.Int64Counter("scheduler_process_launch_allowed_total")
		denied, _ = meter.Int64Counter("scheduler_process_launch_denied_total")
	}
	return &LaunchLimiter{
		tokens:     float64(burstCapacity),
		capacity:   float64(burstCapacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		allowed:    allowed,
		denied:     denied,
	}
}

// Allow reports whether a process launch may proceed right now,
// consuming a token if so. A task that is denied stays eligible and
// will be reconsidered on the next tick; it is not queued.
func (l *LaunchLimiter) Allow(ctx context.Context) bool {
	l.refill()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		if l.allowed != nil {
			l.allowed.Add(ctx, 1)
		}
		return true
	}
	if l.denied != nil {
		l.denied.Add(ctx, 1)
	}
	return false
}

// Release returns a token, called when a process-mode dispatch
// completes so the capacity it held becomes available again
// immediately instead of waiting for the ambient refill rate.
func (l *LaunchLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens < l.capacity {
		l.tokens++
	}
}

func (l *LaunchLimiter) refill() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens = min(l.capacity, l.tokens+elapsed*l.refillRate)
	l.lastRefill = now
}

package ratelimit

import (
	"sync"
	"time"
)

// DefaultMinInterval is the minimum spacing between upstream carrier fetches.
const DefaultMinInterval = 4 * time.Second

// Result contains the outcome of a throttle check.
type Result struct {
	ShouldBlock   bool
	RemainingTime time.Duration
	Reason        string
}

// Limiter throttles carrier fetches both per tracking identifier and
// globally. Both clocks live under one mutex so a check-then-mark pair from
// two goroutines cannot interleave into a double fetch.
type Limiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	disabled    bool
	now         func() time.Time

	lastByID   map[string]time.Time
	lastGlobal time.Time
}

// New creates a limiter. A non-positive interval falls back to the default.
func New(minInterval time.Duration, disabled bool) *Limiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Limiter{
		minInterval: minInterval,
		disabled:    disabled,
		now:         time.Now,
		lastByID:    make(map[string]time.Time),
	}
}

// Check reports whether a fetch for the identifier should be blocked. It
// does not record the fetch; call MarkFetched once the fetch is issued.
func (l *Limiter) Check(id string) Result {
	if l.disabled {
		return Result{Reason: "rate_limiting_disabled"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.lastByID[id]; ok {
		if wait := l.minInterval - now.Sub(last); wait > 0 {
			return Result{ShouldBlock: true, RemainingTime: wait, Reason: "identifier_interval"}
		}
	}
	if !l.lastGlobal.IsZero() {
		if wait := l.minInterval - now.Sub(l.lastGlobal); wait > 0 {
			return Result{ShouldBlock: true, RemainingTime: wait, Reason: "global_interval"}
		}
	}
	return Result{Reason: "rate_limit_passed"}
}

// MarkFetched records that a fetch for the identifier was just issued.
func (l *Limiter) MarkFetched(id string) {
	if l.disabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.lastByID[id] = now
	l.lastGlobal = now
}

// SetClock substitutes the time source, for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

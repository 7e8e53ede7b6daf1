// Package governor implements the process-wide request admission window that keeps
// traffic to the upstream catalog API under its published limits.
package governor

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of requests admitted per window.
	DefaultMaxRequests = 10
	// DefaultWindow is the length of the admission window.
	DefaultWindow = time.Minute
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is the number of whole seconds until the window resets. Zero when allowed.
	RetryAfter int
	Count      int
	Limit      int
}

// Usage is a snapshot of the current window.
type Usage struct {
	Count       int
	Limit       int
	WindowStart time.Time
	ResetsIn    time.Duration
}

// Governor counts requests in a rolling window shared by every caller.
type Governor struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	count       int
	windowStart time.Time
	now         func() time.Time
}

// Option configures a Governor.
type Option func(*Governor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// WithWindow overrides the window length.
func WithWindow(d time.Duration) Option {
	return func(g *Governor) {
		if d > 0 {
			g.window = d
		}
	}
}

// New creates a Governor admitting max requests per window. The first window opens now.
func New(max int, opts ...Option) *Governor {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	g := &Governor{
		max:    max,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.windowStart = g.now()
	return g
}

// Allow records one request and reports whether it may proceed.
func (g *Governor) Allow() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	elapsed := now.Sub(g.windowStart)
	if elapsed > g.window {
		g.count = 0
		g.windowStart = now
		elapsed = 0
	}

	if g.count >= g.max {
		return Decision{
			Allowed:    false,
			RetryAfter: retryAfterSeconds(g.window - elapsed),
			Count:      g.count,
			Limit:      g.max,
		}
	}

	g.count++
	return Decision{Allowed: true, Count: g.count, Limit: g.max}
}

// Usage reports the current window without recording a request.
func (g *Governor) Usage() Usage {
	g.mu.Lock()
	defer g.mu.Unlock()

	elapsed := g.now().Sub(g.windowStart)
	count := g.count
	resetsIn := g.window - elapsed
	if elapsed > g.window {
		count = 0
		resetsIn = 0
	}
	return Usage{
		Count:       count,
		Limit:       g.max,
		WindowStart: g.windowStart,
		ResetsIn:    resetsIn,
	}
}

// retryAfterSeconds rounds the remaining window up to whole seconds, minimum 1.
func retryAfterSeconds(remaining time.Duration) int {
	ms := remaining.Milliseconds()
	secs := int((ms + 999) / 1000)
	if secs < 1 {
		return 1
	}
	return secs
}

// Package ratelimit provides a per-chat fixed-window request throttle. It is
// abuse mitigation, not a security boundary; state is in-memory only and
// resets on process restart.
package ratelimit

import (
	"sync"
	"time"
)

const (
	defaultWindow      = 60 * time.Second
	defaultMaxRequests = 15
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per chat inside a fixed window.
type Limiter struct {
	mu      sync.Mutex
	windows map[int64]*window

	windowLen   time.Duration
	maxRequests int
	now         func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLimits overrides the window length and request cap.
func WithLimits(windowLen time.Duration, maxRequests int) Option {
	return func(l *Limiter) {
		l.windowLen = windowLen
		l.maxRequests = maxRequests
	}
}

// NewLimiter creates a Limiter with the default 15-requests-per-60s policy.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		windows:     make(map[int64]*window),
		windowLen:   defaultWindow,
		maxRequests: defaultMaxRequests,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsLimited records one request for the chat and reports whether it exceeds
// the window cap. The first request of a chat, or the first after the window
// expires, starts a fresh window with count 1 and is always admitted.
func (l *Limiter) IsLimited(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[chatID]
	if !ok || now.After(w.resetAt) {
		l.windows[chatID] = &window{count: 1, resetAt: now.Add(l.windowLen)}
		return false
	}
	w.count++
	return w.count > l.maxRequests
}

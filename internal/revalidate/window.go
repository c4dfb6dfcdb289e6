package revalidate

import (
	"context"
	"sync"
	"time"
)

// Limiter is a per-IP sliding window counter. Unlike a token bucket it
// never lets a cold caller burst past the window limit, which is what we
// want for a webhook that triggers cache invalidation work.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	limit  int
	window time.Duration
	now    func() time.Time

	// OnDenied fires on every rejected request.
	OnDenied func(ip string)
}

type LimiterOption func(*Limiter)

// WithLimit sets how many requests each IP gets per window.
func WithLimit(n int, window time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.limit = n
		l.window = window
	}
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

func WithOnDenied(fn func(ip string)) LimiterOption {
	return func(l *Limiter) { l.OnDenied = fn }
}

// NewLimiter defaults to 10 requests per 60s. The cleanup goroutine evicts
// idle IPs and stops when ctx is canceled.
func NewLimiter(ctx context.Context, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		windows: make(map[string][]time.Time),
		limit:   10,
		window:  time.Minute,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// Allow records one attempt for ip and reports whether it fits in the
// window. Expired timestamps are pruned on the way in.
func (l *Limiter) Allow(ip string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	ts := l.windows[ip]
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.windows[ip] = kept
		l.mu.Unlock()
		if l.OnDenied != nil {
			l.OnDenied(ip)
		}
		return false
	}

	l.windows[ip] = append(kept, now)
	l.mu.Unlock()
	return true
}

func (l *Limiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := l.now().Add(-l.window)
			l.mu.Lock()
			for ip, ts := range l.windows {
				if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
					delete(l.windows, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

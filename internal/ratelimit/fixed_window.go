package ratelimit

import (
	"context"
	"strconv"
	"time"
)

// windowSlack keeps a counter alive a little past its window to absorb clock skew.
const windowSlack = time.Second

// FixedWindowLimiter allows at most limit requests per key in each window.
// Windows are aligned to multiples of the window length since the Unix epoch,
// so every client's counter rolls over at the same instant.
type FixedWindowLimiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter creates a limiter. A nil store uses a MemoryStore.
func NewFixedWindowLimiter(s Store, limit int, window time.Duration) *FixedWindowLimiter {
	if s == nil {
		s = NewMemoryStore()
	}
	return &FixedWindowLimiter{
		store:  s,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// getWindowStart returns the start time of the window containing t.
func (l *FixedWindowLimiter) getWindowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}

// Allow implements Limiter. Denied requests still count toward the window.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := l.now()
	windowStart := l.getWindowStart(now)
	windowKey := key + ":fw:" + strconv.FormatInt(windowStart.UnixNano(), 10)

	count, err := l.store.Increment(ctx, windowKey, l.window+windowSlack)
	if err != nil {
		return nil, err
	}

	allowed := count <= int64(l.limit)

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

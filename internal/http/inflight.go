package http

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

const defaultDrainInterval = 50 * time.Millisecond

// InFlightTracker counts requests between MetricsMiddleware entry and exit so
// shutdown can drain them after the listener stops accepting.
type InFlightTracker struct {
	count atomic.Int64
}

// Begin registers a request and returns the func that releases it.
func (t *InFlightTracker) Begin() (done func()) {
	t.count.Add(1)
	observability.HTTPRequestsInFlight.Inc()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			observability.HTTPRequestsInFlight.Dec()
			t.count.Add(-1)
		}
	}
}

func (t *InFlightTracker) Count() int64 {
	return t.count.Load()
}

// Drain polls every interval until no request is in flight or ctx ends.
func (t *InFlightTracker) Drain(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultDrainInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for t.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

var requestsInFlight = &InFlightTracker{}

// InFlightCount returns the number of dashboard requests being served.
func InFlightCount() int64 {
	return requestsInFlight.Count()
}

// WaitForInFlight blocks until every dashboard request has completed or ctx is done.
func WaitForInFlight(ctx context.Context, checkInterval time.Duration) error {
	return requestsInFlight.Drain(ctx, checkInterval)
}

// Package lifecycle holds the process-wide drain state read by the health endpoint.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// drainStart is the unix-nano time shutdown began, zero while serving.
var drainStart atomic.Int64

// SetShuttingDown marks the process as draining. The health endpoint answers
// 503 shutting-down from then on. Repeated calls keep the first start time.
func SetShuttingDown(v bool) {
	if !v {
		drainStart.Store(0)
		return
	}
	drainStart.CompareAndSwap(0, time.Now().UnixNano())
}

func IsShuttingDown() bool {
	return drainStart.Load() != 0
}

// DrainingFor reports how long shutdown has been in progress. Zero while serving.
func DrainingFor() time.Duration {
	start := drainStart.Load()
	if start == 0 {
		return 0
	}
	return time.Since(time.Unix(0, start))
}

package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// requestCoalescer collapses concurrent upstream fetches for the same key into
// one call. The shared fetch runs detached from any single caller's
// cancellation, bounded by timeout, so one client hanging up does not fail
// everyone waiting on the same key.
type requestCoalescer struct {
	group   singleflight.Group
	timeout time.Duration

	mu      sync.Mutex
	waiters map[string]int
}

// coalesced is one caller's view of a coalesced fetch.
type coalesced struct {
	val []byte
	// shared reports whether the result went to more than one caller.
	shared bool
	// waiters is how many callers were waiting on the key when this one
	// joined, itself included. Above 1 means a cache stampede.
	waiters int
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{timeout: timeout, waiters: make(map[string]int)}
}

func (rc *requestCoalescer) join(key string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.waiters[key]++
	return rc.waiters[key]
}

func (rc *requestCoalescer) leave(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.waiters[key] <= 1 {
		delete(rc.waiters, key)
		return
	}
	rc.waiters[key]--
}

// Do returns fn's result for key, running fn once for all concurrent callers.
func (rc *requestCoalescer) Do(ctx context.Context, key string, fn func(ctx context.Context) ([]byte, error)) (coalesced, error) {
	out := coalesced{waiters: rc.join(key)}
	defer rc.leave(key)

	ch := rc.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.timeout)
		defer cancel()
		return fn(fetchCtx)
	})

	select {
	case res := <-ch:
		out.shared = res.Shared
		if res.Err != nil {
			return out, res.Err
		}
		out.val = res.Val.([]byte)
		return out, nil
	case <-ctx.Done():
		return out, ctx.Err()
	}
}

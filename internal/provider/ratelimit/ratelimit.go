package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates provider-touching calls. The batch resolution loop waits
// on it before each symbol that needs an upstream fetch, as a courtesy
// rate-limit to the quote APIs.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinInterval enforces a minimum gap between consecutive calls.
// Concurrent callers wait until the interval has elapsed since the last
// release, or return early if the context is canceled.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	now := time.Now()
	next := m.last.Add(m.Interval)
	if next.Before(now) {
		next = now
	}
	m.last = next
	wait := next.Sub(now)
	m.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

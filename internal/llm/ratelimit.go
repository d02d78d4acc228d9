package llm

import (
	"context"
	"sync"
	"time"
)

// SlidingLimiter caps calls inside any rolling 60-second window. When the
// window is full, Wait blocks until the oldest call ages out. It never
// rejects; callers are throttled, not refused.
type SlidingLimiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time

	now   func() time.Time                           // for testing
	sleep func(context.Context, time.Duration) error // for testing
}

// NewSlidingLimiter creates a limiter allowing maxCalls per minute.
// Values below one are clamped to one; a windowful of zero slots could
// never admit a call.
func NewSlidingLimiter(maxCalls int) *SlidingLimiter {
	if maxCalls < 1 {
		maxCalls = 1
	}
	return &SlidingLimiter{
		maxCalls: maxCalls,
		window:   time.Minute,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Wait blocks until a call slot is available, then records the call.
// Returns early with the context's error if ctx is cancelled while waiting.
func (l *SlidingLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.window - now.Sub(l.calls[0])
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending returns the number of calls currently inside the window.
func (l *SlidingLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.calls)
}

// prune drops calls older than the window. Caller holds l.mu.
func (l *SlidingLimiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.calls) && now.Sub(l.calls[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		l.calls = append(l.calls[:0], l.calls[cut:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

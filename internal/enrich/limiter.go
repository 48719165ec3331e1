package enrich

import (
	"context"
	"sync/atomic"
	"time"
)

// Limiter enforces a minimum interval between the last successful enrichment
// response and the start of the next call. One Limiter is shared by every
// worker of a process; only one call holds it at a time.
type Limiter struct {
	minInterval time.Duration
	// lastRequestAt holds the UnixNano time of the most recent successful
	// response, zero before the first one.
	lastRequestAt atomic.Int64
	// slot admits one in-flight call.
	slot chan struct{}
	now  func() time.Time
}

// NewLimiter creates a Limiter. A non-positive interval disables the wait
// between calls; calls are still serialized.
func NewLimiter(minInterval time.Duration) *Limiter {
	if minInterval < 0 {
		minInterval = 0
	}
	return &Limiter{minInterval: minInterval, slot: make(chan struct{}, 1), now: time.Now}
}

// MinInterval returns the configured interval.
func (l *Limiter) MinInterval() time.Duration { return l.minInterval }

// LastRequestAt returns the time of the most recent successful response.
func (l *Limiter) LastRequestAt() time.Time {
	last := l.lastRequestAt.Load()
	if last == 0 {
		return time.Time{}
	}
	return time.Unix(0, last)
}

// TimeUntilNextRequest returns how long until the interval since the last
// successful response has passed.
func (l *Limiter) TimeUntilNextRequest() time.Duration {
	last := l.lastRequestAt.Load()
	if last == 0 {
		return 0
	}
	wait := time.Duration(last + int64(l.minInterval) - l.now().UnixNano())
	if wait < 0 {
		return 0
	}
	return wait
}

// CanMakeRequest reports whether the interval since the last successful
// response has passed.
func (l *Limiter) CanMakeRequest() bool {
	return l.TimeUntilNextRequest() == 0
}

// Acquire blocks until no other call is in flight and the interval since the
// last successful response has passed. The returned release must be called
// exactly once with whether the call succeeded.
func (l *Limiter) Acquire(ctx context.Context) (func(success bool), error) {
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		wait := l.TimeUntilNextRequest()
		if wait <= 0 {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			<-l.slot
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		<-l.slot
		return nil, err
	}

	var released atomic.Bool
	return func(success bool) {
		if !released.CompareAndSwap(false, true) {
			return
		}
		if success {
			l.markSuccess()
		}
		<-l.slot
	}, nil
}

// markSuccess advances lastRequestAt to now. It never moves backwards.
func (l *Limiter) markSuccess() {
	now := l.now().UnixNano()
	for {
		last := l.lastRequestAt.Load()
		if last >= now || l.lastRequestAt.CompareAndSwap(last, now) {
			return
		}
	}
}

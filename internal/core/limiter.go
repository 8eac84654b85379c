package core

// limiter.go bounds how many sweep batches run at once.
//
// A batch holds one slot from Acquire until Release. When every slot is busy
// a caller waits up to maxWait and then gets ErrTooManyBatches. WaitForDrain
// lets shutdown block until in-flight batches finish.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyBatches is returned when no slot frees up within the wait time.
var ErrTooManyBatches = errors.New("too many concurrent uploads, please try again later")

const (
	DefaultMaxConcurrentBatches = 4
	DefaultMaxWaitTime          = 10 * time.Second
)

// BatchLimiter is a counting semaphore with a bounded wait.
type BatchLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewBatchLimiter allows at most maxConcurrent batches. Non-positive
// arguments fall back to the package defaults.
func NewBatchLimiter(maxConcurrent int, maxWait time.Duration) *BatchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentBatches
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &BatchLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. The caller must Release it.
// A cancelled ctx returns ctx.Err(); an expired wait returns ErrTooManyBatches.
func (l *BatchLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyBatches
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *BatchLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *BatchLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *BatchLimiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// ActiveCount returns the number of batches holding a slot.
func (l *BatchLimiter) ActiveCount() int { return int(l.active.Load()) }

// MaxConcurrent returns the slot count.
func (l *BatchLimiter) MaxConcurrent() int { return cap(l.slots) }

// WaitForDrain blocks until no batch holds a slot or ctx is done.
func (l *BatchLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a point-in-time view for the health endpoint.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *BatchLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

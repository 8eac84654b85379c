package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchLimiter_AcquireRelease(t *testing.T) {
	l := NewBatchLimiter(2, time.Second)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, LimiterStatus{Active: 2, Available: 0, MaxConcurrent: 2}, l.Status())

	l.Release()
	assert.Equal(t, 1, l.ActiveCount())
	l.Release()
	assert.Equal(t, LimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, l.Status())
}

func TestBatchLimiter_TimesOutWhenFull(t *testing.T) {
	l := NewBatchLimiter(1, 50*time.Millisecond)
	require.True(t, l.TryAcquire())
	defer l.Release()

	assert.False(t, l.TryAcquire())
	assert.ErrorIs(t, l.Acquire(context.Background()), ErrTooManyBatches)
}

func TestBatchLimiter_ContextCancellation(t *testing.T) {
	l := NewBatchLimiter(1, 5*time.Second)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestBatchLimiter_NeverExceedsMax(t *testing.T) {
	const max = 3
	l := NewBatchLimiter(max, time.Second)

	var peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), func(context.Context) error {
				n := int64(l.ActiveCount())
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(max))
	assert.Zero(t, l.ActiveCount())
}

func TestBatchLimiter_DoReleasesOnError(t *testing.T) {
	l := NewBatchLimiter(1, time.Second)
	boom := errors.New("boom")

	err := l.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, l.ActiveCount())
}

func TestBatchLimiter_WaitForDrain(t *testing.T) {
	l := NewBatchLimiter(2, time.Second)
	require.True(t, l.TryAcquire())

	done := make(chan error, 1)
	go func() { done <- l.WaitForDrain(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitForDrain returned while a batch was active")
	case <-time.After(60 * time.Millisecond):
	}

	l.Release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain did not return after release")
	}
}

func TestBatchLimiter_WaitForDrainCancelled(t *testing.T) {
	l := NewBatchLimiter(1, time.Second)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitForDrain(ctx), context.DeadlineExceeded)
}

func TestBatchLimiter_Defaults(t *testing.T) {
	assert.Equal(t, DefaultMaxConcurrentBatches, NewBatchLimiter(0, 0).MaxConcurrent())
}

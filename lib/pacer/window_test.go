package pacer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockWindow(t *testing.T, calls int, period time.Duration) (*Window, *clock.Mock) {
	mock := clock.NewMock()
	w, err := NewWindow(calls, period, ClockOption(mock))
	require.NoError(t, err)
	return w, mock
}

func TestNewWindowErrors(t *testing.T) {
	_, err := NewWindow(0, time.Second)
	assert.EqualError(t, err, "pacer: calls must be at least 1, got 0")
	_, err = NewWindow(1, 0)
	assert.EqualError(t, err, "pacer: period must be positive, got 0s")
	w, err := NewWindow(3, time.Second)
	require.NoError(t, err)
	calls, period := w.Limit()
	assert.Equal(t, 3, calls)
	assert.Equal(t, time.Second, period)
}

func TestWindowTryAcquire(t *testing.T) {
	w, mock := newMockWindow(t, 3, 10*time.Second)

	for i := 0; i < 3; i++ {
		ok, wait := w.TryAcquire()
		assert.True(t, ok, i)
		assert.Equal(t, time.Duration(0), wait)
		mock.Add(time.Second)
	}
	assert.Equal(t, 3, w.Len())

	// full - the first admission was at t=0 and it is now t=3s
	ok, wait := w.TryAcquire()
	assert.False(t, ok)
	assert.Equal(t, 7*time.Second, wait)

	// still full just before the first admission expires
	mock.Add(7*time.Second - time.Nanosecond)
	ok, _ = w.TryAcquire()
	assert.False(t, ok)

	// exactly period after the first admission it has left the window
	mock.Add(time.Nanosecond)
	ok, _ = w.TryAcquire()
	assert.True(t, ok)
	assert.Equal(t, 3, w.Len())

	// the next slot frees when the t=1s admission expires
	ok, wait = w.TryAcquire()
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)
}

func TestWindowLenExpires(t *testing.T) {
	w, mock := newMockWindow(t, 5, time.Minute)
	for i := 0; i < 4; i++ {
		ok, _ := w.TryAcquire()
		require.True(t, ok)
	}
	assert.Equal(t, 4, w.Len())
	mock.Add(time.Minute)
	assert.Equal(t, 0, w.Len())
}

// Admissions within any window of length period never exceed calls
func TestWindowNeverExceeds(t *testing.T) {
	const calls = 4
	const period = 10 * time.Second
	w, mock := newMockWindow(t, calls, period)
	var admitted []time.Time
	for step := 0; step < 200; step++ {
		for {
			ok, _ := w.TryAcquire()
			if !ok {
				break
			}
			admitted = append(admitted, mock.Now())
		}
		mock.Add(700 * time.Millisecond)
	}
	require.NotEmpty(t, admitted)
	for i := range admitted {
		n := 0
		for j := i; j < len(admitted) && admitted[j].Sub(admitted[i]) < period; j++ {
			n++
		}
		assert.LessOrEqual(t, n, calls)
	}
}

func TestWindowAcquireBlocks(t *testing.T) {
	w, mock := newMockWindow(t, 2, 100*time.Second)
	ctx := context.Background()
	require.NoError(t, w.Acquire(ctx))
	require.NoError(t, w.Acquire(ctx))

	var done int32
	go func() {
		assert.NoError(t, w.Acquire(ctx))
		atomic.StoreInt32(&done, 1)
	}()

	// nothing happens until the window slides
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&done))

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&done) == 0 && time.Now().Before(deadline) {
		mock.Add(10 * time.Second)
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
	assert.GreaterOrEqual(t, mock.Now().Sub(time.Unix(0, 0)), 100*time.Second)
}

func TestWindowAcquireCancel(t *testing.T) {
	w, _ := newMockWindow(t, 1, time.Hour)
	require.NoError(t, w.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.Acquire(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.Equal(t, 1, w.Len())
}

func TestWindowConcurrent(t *testing.T) {
	w, err := NewWindow(5, 200*time.Millisecond)
	require.NoError(t, err)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		times []time.Time
	)
	start := time.Now()
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Acquire(context.Background()))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, times, 12)
	// 12 calls at 5 per 200ms needs at least two full periods
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

// Package pacer limits the rate of API calls
package pacer

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Window is a sliding window rate limiter.  It allows at most calls
// admissions in any interval of length period.  Callers over the
// limit wait until the oldest admission leaves the window; nothing
// is ever dropped.
type Window struct {
	mu     sync.Mutex
	clock  clock.Clock
	calls  int
	period time.Duration
	times  []time.Time // ring of admission times, oldest at head
	head   int
	n      int
}

// WindowOption configures a Window
type WindowOption func(*Window)

// ClockOption sets the clock used by the Window
func ClockOption(c clock.Clock) WindowOption {
	return func(w *Window) {
		w.clock = c
	}
}

// NewWindow makes a Window admitting calls per period
func NewWindow(calls int, period time.Duration, opts ...WindowOption) (*Window, error) {
	if calls < 1 {
		return nil, errors.Errorf("pacer: calls must be at least 1, got %d", calls)
	}
	if period <= 0 {
		return nil, errors.Errorf("pacer: period must be positive, got %v", period)
	}
	w := &Window{
		clock:  clock.New(),
		calls:  calls,
		period: period,
		times:  make([]time.Time, calls),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// expire drops admissions older than period - call with mu held
func (w *Window) expire(now time.Time) {
	for w.n > 0 && now.Sub(w.times[w.head]) >= w.period {
		w.head = (w.head + 1) % w.calls
		w.n--
	}
}

// TryAcquire admits a call if there is room in the window.  If there
// isn't it returns false and how long until the oldest admission
// expires.
func (w *Window) TryAcquire() (ok bool, wait time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clock.Now()
	w.expire(now)
	if w.n < w.calls {
		w.times[(w.head+w.n)%w.calls] = now
		w.n++
		return true, 0
	}
	wait = w.period - now.Sub(w.times[w.head])
	if wait <= 0 {
		wait = time.Nanosecond
	}
	return false, wait
}

// Acquire blocks until the call is admitted.  It only returns an
// error if ctx is done first, in which case nothing was admitted.
func (w *Window) Acquire(ctx context.Context) error {
	for {
		ok, wait := w.TryAcquire()
		if ok {
			return nil
		}
		timer := w.clock.Timer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Len returns the number of admissions in the current window
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(w.clock.Now())
	return w.n
}

// Limit returns the calls and period the Window was made with
func (w *Window) Limit() (calls int, period time.Duration) {
	return w.calls, w.period
}

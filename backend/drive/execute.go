package drive

import (
	"context"
	"time"

	"github.com/drivemeta/drivemeta/fs"
	"github.com/drivemeta/drivemeta/lib/pacer"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

// Call is a single prepared API request.  Every generated Drive call,
// eg *drive.FilesGetCall, satisfies Call for its result type.
type Call[T any] interface {
	Do(opts ...googleapi.CallOption) (T, error)
}

// Executor runs API calls through a sliding window shared by all its
// callers, and optionally limits how many run at once.
type Executor struct {
	window  *pacer.Window
	tokens  *pacer.TokenDispenser // nil for no limit
	metrics *Metrics
}

// NewExecutor makes an Executor allowing calls per period with at most
// maxConnections in flight, or unlimited if maxConnections is 0.
func NewExecutor(calls int, period time.Duration, maxConnections int, opts ...pacer.WindowOption) (*Executor, error) {
	window, err := pacer.NewWindow(calls, period, opts...)
	if err != nil {
		return nil, err
	}
	e := &Executor{
		window:  window,
		metrics: DefaultMetrics,
	}
	if maxConnections > 0 {
		e.tokens = pacer.NewTokenDispenser(maxConnections)
	}
	return e, nil
}

// Window returns the limiter the executor paces with
func (e *Executor) Window() *pacer.Window {
	return e.window
}

// Execute runs call once it is allowed by e.
//
// It blocks while the window is full, returning ctx.Err() only if ctx
// is done first.  If the call fails with a *googleapi.Error the zero
// T and a nil error are returned.  Any other error is returned as is.
func Execute[T any](ctx context.Context, e *Executor, call Call[T]) (result T, err error) {
	start := time.Now()
	if e.tokens != nil {
		if err = e.tokens.Get(ctx); err != nil {
			return result, err
		}
		defer e.tokens.Put()
	}
	if err = e.window.Acquire(ctx); err != nil {
		return result, err
	}
	e.metrics.waited(time.Since(start), e.window.Len())

	result, err = call.Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			fs.Debugf(nil, "Ignoring Drive API error: %v", err)
			e.metrics.suppressed(gerr.Code)
			var zero T
			return zero, nil
		}
		e.metrics.result(resultError)
		return result, err
	}
	e.metrics.result(resultOK)
	return result, nil
}

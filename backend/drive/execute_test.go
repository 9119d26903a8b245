package drive

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/drivemeta/drivemeta/lib/pacer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// fakeCall returns result and err from Do
type fakeCall[T any] struct {
	result T
	err    error
	calls  *int32
}

func (c fakeCall[T]) Do(opts ...googleapi.CallOption) (T, error) {
	if c.calls != nil {
		atomic.AddInt32(c.calls, 1)
	}
	return c.result, c.err
}

func newMockExecutor(t *testing.T, calls int, period time.Duration) (*Executor, *clock.Mock) {
	mock := clock.NewMock()
	e, err := NewExecutor(calls, period, 0, pacer.ClockOption(mock))
	require.NoError(t, err)
	e.metrics = NewMetrics("test")
	return e, mock
}

func TestExecuteOK(t *testing.T) {
	e, _ := newMockExecutor(t, 10, time.Second)
	got, err := Execute[map[string]int](context.Background(), e, fakeCall[map[string]int]{result: map[string]int{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1}, got)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Calls.WithLabelValues(resultOK)))
	assert.Equal(t, 1, e.Window().Len())
}

func TestExecuteSuppressesHTTPError(t *testing.T) {
	e, _ := newMockExecutor(t, 10, time.Second)
	gerr := &googleapi.Error{Code: http.StatusNotFound, Message: "File not found"}
	got, err := Execute[map[string]int](context.Background(), e, fakeCall[map[string]int]{
		result: map[string]int{"partial": 1},
		err:    gerr,
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Calls.WithLabelValues(resultSuppressed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Suppressed.WithLabelValues("404")))

	// wrapped errors are found too
	_, err = Execute[*int](context.Background(), e, fakeCall[*int]{err: wrapError{gerr}})
	require.NoError(t, err)
}

type wrapError struct{ err error }

func (w wrapError) Error() string { return "wrapped: " + w.err.Error() }
func (w wrapError) Unwrap() error { return w.err }

func TestExecutePropagatesOtherErrors(t *testing.T) {
	e, _ := newMockExecutor(t, 10, time.Second)
	errBoom := errors.New("connection reset")
	_, err := Execute[*int](context.Background(), e, fakeCall[*int]{err: errBoom})
	assert.Same(t, errBoom, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.Calls.WithLabelValues(resultError)))
}

func TestExecuteBlocksWhenWindowFull(t *testing.T) {
	const calls = defaultPacerCalls
	period := time.Duration(defaultPacerPeriod)
	e, mock := newMockExecutor(t, calls, period)
	ctx := context.Background()

	var made int32
	call := fakeCall[int]{result: 1, calls: &made}
	for i := 0; i < calls; i++ {
		_, err := Execute[int](ctx, e, call)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(calls), atomic.LoadInt32(&made))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := Execute[int](ctx, e, call)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
		t.Fatal("call over the limit wasn't delayed")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, int32(calls), atomic.LoadInt32(&made))

	// move the clock on until the oldest call leaves the window
	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case <-done:
			assert.Equal(t, int32(calls+1), atomic.LoadInt32(&made))
			assert.True(t, time.Unix(0, 0).Add(period).Equal(mock.Now()), mock.Now())
			return
		default:
		}
		require.True(t, time.Now().Before(deadline), "timed out waiting for delayed call")
		if mock.Now().Before(time.Unix(0, 0).Add(period)) {
			mock.Add(10 * time.Second)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestExecuteCancel(t *testing.T) {
	e, _ := newMockExecutor(t, 1, time.Hour)
	_, err := Execute[int](context.Background(), e, fakeCall[int]{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var made int32
	_, err = Execute[int](ctx, e, fakeCall[int]{calls: &made})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, int32(0), made)
}

func TestExecuteMaxConnections(t *testing.T) {
	e, err := NewExecutor(100, time.Second, 1)
	require.NoError(t, err)
	require.NotNil(t, e.tokens)

	// hold the only connection token
	require.NoError(t, e.tokens.Get(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Execute[int](ctx, e, fakeCall[int]{})
	assert.Equal(t, context.DeadlineExceeded, err)
	e.tokens.Put()

	_, err = Execute[int](context.Background(), e, fakeCall[int]{})
	require.NoError(t, err)
	assert.Equal(t, 1, e.tokens.Available())
}

func TestExecuteTokenWaitDoesNotUseWindow(t *testing.T) {
	e, err := NewExecutor(2, time.Hour, 1)
	require.NoError(t, err)

	require.NoError(t, e.tokens.Get(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = Execute[int](ctx, e, fakeCall[int]{})
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.Equal(t, 0, e.Window().Len())
	e.tokens.Put()

	_, err = Execute[int](context.Background(), e, fakeCall[int]{})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Window().Len())
}

func TestNewExecutorErrors(t *testing.T) {
	_, err := NewExecutor(0, time.Second, 0)
	assert.Error(t, err)
}

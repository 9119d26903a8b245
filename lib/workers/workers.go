// Package workers runs jobs on a fixed number of goroutines, each
// with its own identity.
package workers

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type idContextKeyType struct{}

// Context key for the worker identity
var idContextKey = idContextKeyType{}

// WithID returns a context carrying the worker identity id
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idContextKey, id)
}

// ID returns the identity of the worker running ctx or "" if there
// isn't one
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(idContextKey).(string)
	return id
}

// Option configures Run
type Option func(*options)

type options struct {
	onExit []func(id string)
}

// OnExit registers fn to be called with the worker identity when each
// worker finishes, whether or not it failed.
func OnExit(fn func(id string)) Option {
	return func(o *options) {
		o.onExit = append(o.onExit, fn)
	}
}

// Run calls fn for every job using n workers.
//
// Each worker gets a fresh identity, retrievable from the ctx passed
// to fn with ID, which stays the same for every job it runs.  The
// first error cancels the jobs not yet started and is returned.
func Run[T any](ctx context.Context, n int, jobs []T, fn func(ctx context.Context, job T) error, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if n < 1 {
		n = 1
	}
	if n > len(jobs) {
		n = len(jobs)
	}
	g, gCtx := errgroup.WithContext(ctx)
	in := make(chan T)
	g.Go(func() error {
		defer close(in)
		for _, job := range jobs {
			select {
			case in <- job:
			case <-gCtx.Done():
				return nil
			}
		}
		return nil
	})
	for i := 0; i < n; i++ {
		id := uuid.New().String()
		g.Go(func() error {
			defer func() {
				for _, fn := range o.onExit {
					fn(id)
				}
			}()
			workerCtx := WithID(gCtx, id)
			for job := range in {
				if gCtx.Err() != nil {
					return nil
				}
				if err := fn(workerCtx, job); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

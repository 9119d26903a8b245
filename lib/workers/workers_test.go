package workers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	assert.Equal(t, "", ID(context.Background()))
	//lint:ignore SA1012 we want to test passing a nil Context
	//nolint:staticcheck
	assert.Equal(t, "", ID(nil))
	ctx := WithID(context.Background(), "potato")
	assert.Equal(t, "potato", ID(ctx))
}

func TestRun(t *testing.T) {
	jobs := make([]int, 100)
	for i := range jobs {
		jobs[i] = i
	}
	var (
		mu     sync.Mutex
		seen   = map[int]string{}
		exited []string
	)
	err := Run(context.Background(), 4, jobs, func(ctx context.Context, job int) error {
		id := ID(ctx)
		assert.NotEmpty(t, id)
		mu.Lock()
		seen[job] = id
		mu.Unlock()
		return nil
	}, OnExit(func(id string) {
		mu.Lock()
		exited = append(exited, id)
		mu.Unlock()
	}))
	require.NoError(t, err)
	assert.Len(t, seen, 100)

	ids := map[string]struct{}{}
	for _, id := range seen {
		ids[id] = struct{}{}
	}
	assert.LessOrEqual(t, len(ids), 4)

	// every worker exits once, including ones which got no jobs
	assert.Len(t, exited, 4)
	exitedSet := map[string]struct{}{}
	for _, id := range exited {
		exitedSet[id] = struct{}{}
	}
	assert.Len(t, exitedSet, 4)
	for id := range ids {
		assert.Contains(t, exitedSet, id)
	}
}

func TestRunStableIdentity(t *testing.T) {
	var ids []string
	err := Run(context.Background(), 1, []string{"a", "b", "c"}, func(ctx context.Context, job string) error {
		ids = append(ids, ID(ctx))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2])
}

func TestRunError(t *testing.T) {
	errBoom := errors.New("boom")
	var (
		mu    sync.Mutex
		count int
	)
	jobs := make([]int, 1000)
	err := Run(context.Background(), 2, jobs, func(ctx context.Context, job int) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == 5 {
			return errBoom
		}
		return nil
	})
	assert.Equal(t, errBoom, err)
	mu.Lock()
	assert.Less(t, count, 1000)
	mu.Unlock()
}

func TestRunNoJobs(t *testing.T) {
	called := false
	err := Run(context.Background(), 8, []int(nil), func(ctx context.Context, job int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("an error")

type handle struct {
	key string
}

func setup(t *testing.T) (*Cache[*handle], *int) {
	called := 0
	c := New[*handle]("test")
	c.metrics = NewMetrics("test")
	t.Cleanup(c.Clear)
	return c, &called
}

func creator(called *int) CreateFunc[*handle] {
	return func(key string) (*handle, error) {
		*called++
		if key == "error" {
			return nil, errSentinel
		}
		return &handle{key: key}, nil
	}
}

func TestGet(t *testing.T) {
	c, called := setup(t)
	create := creator(called)

	assert.Equal(t, 0, c.Entries())

	h, err := c.Get("one", create)
	require.NoError(t, err)
	assert.Equal(t, "one", h.key)
	assert.Equal(t, 1, *called)
	assert.Equal(t, 1, c.Entries())

	h2, err := c.Get("one", create)
	require.NoError(t, err)
	assert.Same(t, h, h2)
	assert.Equal(t, 1, *called)

	h3, err := c.Get("two", create)
	require.NoError(t, err)
	assert.NotSame(t, h, h3)
	assert.Equal(t, []string{"one", "two"}, c.Keys())

	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.Hits.WithLabelValues("test")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.metrics.Creates.WithLabelValues("test")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.metrics.Entries.WithLabelValues("test")))
}

func TestGetErrorNotCached(t *testing.T) {
	c, called := setup(t)
	create := creator(called)

	_, err := c.Get("error", create)
	assert.Equal(t, errSentinel, err)
	assert.Equal(t, 0, c.Entries())

	_, err = c.Get("error", create)
	assert.Equal(t, errSentinel, err)
	assert.Equal(t, 2, *called)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.metrics.CreateErrors.WithLabelValues("test")))
}

func TestGetConcurrentSameKey(t *testing.T) {
	c, _ := setup(t)
	var mu sync.Mutex
	create := func(key string) (*handle, error) {
		mu.Lock()
		defer mu.Unlock()
		return &handle{key: key}, nil
	}
	var wg sync.WaitGroup
	results := make([]*handle, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := c.Get("shared", create)
			assert.NoError(t, err)
			results[i] = h
		}(i)
	}
	wg.Wait()
	// everyone ends up with the stored value
	stored, found := c.GetMaybe("shared")
	require.True(t, found)
	for _, h := range results {
		assert.Same(t, stored, h)
	}
}

func TestPutGetMaybeDelete(t *testing.T) {
	c, _ := setup(t)

	_, found := c.GetMaybe("one")
	assert.False(t, found)

	h := &handle{key: "one"}
	c.Put("one", h)
	got, found := c.GetMaybe("one")
	assert.True(t, found)
	assert.Same(t, h, got)

	assert.True(t, c.Delete("one"))
	assert.False(t, c.Delete("one"))
	assert.Equal(t, 0, c.Entries())
}

func TestExpire(t *testing.T) {
	c, called := setup(t)
	mock := clock.NewMock()
	c.SetClock(mock).SetExpireDuration(time.Minute).SetExpireInterval(10 * time.Second)
	create := creator(called)

	_, err := c.Get("one", create)
	require.NoError(t, err)
	mock.Add(30 * time.Second)
	_, err = c.Get("two", create)
	require.NoError(t, err)

	mock.Add(40 * time.Second)
	assert.Equal(t, []string{"two"}, c.Keys())

	mock.Add(time.Minute)
	assert.Equal(t, 0, c.Entries())
	c.mu.Lock()
	assert.False(t, c.expireRunning)
	c.mu.Unlock()
}

func TestNeverExpires(t *testing.T) {
	c, called := setup(t)
	mock := clock.NewMock()
	c.SetClock(mock)
	_, err := c.Get("one", creator(called))
	require.NoError(t, err)
	mock.Add(24 * time.Hour)
	assert.Equal(t, 1, c.Entries())
}

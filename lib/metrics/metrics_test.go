package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "test_total",
		Help:      "A test counter",
	})
	counter.Add(3)
	reg, err := NewRegistry([]prometheus.Collector{counter})
	require.NoError(t, err)

	s, err := Start("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, s.Shutdown(context.Background()))
	}()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "drivemeta_test_total 3")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewRegistryDuplicate(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})
	_, err := NewRegistry([]prometheus.Collector{counter}, []prometheus.Collector{counter})
	assert.Error(t, err)
}

func TestStartBadAddr(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	_, err = Start("256.0.0.1:bad", reg)
	assert.Error(t, err)
}

// Package metrics serves Prometheus metrics over HTTP
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/drivemeta/drivemeta/fs"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name
const Namespace = "drivemeta"

// NewRegistry makes a registry holding the Go runtime and process
// collectors as well as those passed in
func NewRegistry(collectorSets ...[]prometheus.Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	all := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, set := range collectorSets {
		all = append(all, set...)
	}
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register metrics")
		}
	}
	return reg, nil
}

// Server serves /metrics
type Server struct {
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// Start serves the metrics in reg on addr, eg ":9090"
func Start(addr string, reg *prometheus.Registry) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start metrics server")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		err := s.srv.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			fs.Errorf(nil, "Metrics server failed: %v", err)
		}
	}()
	fs.Infof(nil, "Serving metrics on http://%s/metrics", s.Addr())
	return s, nil
}

// Addr returns the address the server is listening on
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for requests in flight until ctx
// is done
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}

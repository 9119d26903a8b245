// Package fshttp contains the common http parts of the config, Transport and Client
package fshttp

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/drivemeta/drivemeta/fs"
	"golang.org/x/time/rate"
)

// NewTPSBucket returns the token bucket for --tpslimit or nil if no
// limit is set
func NewTPSBucket(ci *fs.ConfigInfo) *rate.Limiter {
	if ci.TPSLimit <= 0 {
		return nil
	}
	tpsBurst := ci.TPSLimitBurst
	if tpsBurst < 1 {
		tpsBurst = 1
	}
	fs.Infof(nil, "Starting HTTP transaction limiter: max %g transactions/s with burst %d", ci.TPSLimit, tpsBurst)
	return rate.NewLimiter(rate.Limit(ci.TPSLimit), tpsBurst)
}

// A net.Conn that sets a deadline for every Read or Write operation
type timeoutConn struct {
	net.Conn
	timeout time.Duration
}

// create a timeoutConn using the timeout
func newTimeoutConn(conn net.Conn, timeout time.Duration) (c *timeoutConn, err error) {
	c = &timeoutConn{
		Conn:    conn,
		timeout: timeout,
	}
	err = c.nudgeDeadline()
	return
}

// Nudge the deadline for an idle timeout on by c.timeout if non-zero
func (c *timeoutConn) nudgeDeadline() (err error) {
	if c.timeout == 0 {
		return nil
	}
	when := time.Now().Add(c.timeout)
	return c.Conn.SetDeadline(when)
}

// readOrWrite bytes doing idle timeouts
func (c *timeoutConn) readOrWrite(f func([]byte) (int, error), b []byte) (n int, err error) {
	n, err = f(b)
	// Don't nudge if no bytes or an error
	if n == 0 || err != nil {
		return
	}
	// Nudge the deadline on successful Read or Write
	err = c.nudgeDeadline()
	return
}

// Read bytes doing idle timeouts
func (c *timeoutConn) Read(b []byte) (n int, err error) {
	return c.readOrWrite(c.Conn.Read, b)
}

// Write bytes doing idle timeouts
func (c *timeoutConn) Write(b []byte) (n int, err error) {
	return c.readOrWrite(c.Conn.Write, b)
}

// NewDialer creates a net.Dialer structure with Timeout and Keepalive
// set from the config.
func NewDialer(ci *fs.ConfigInfo) *net.Dialer {
	return &net.Dialer{
		Timeout:   ci.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
}

// NewTransport returns an http.RoundTripper with the correct timeouts
func NewTransport(ci *fs.ConfigInfo) *Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 2 * (ci.Checkers + 1)
	t.MaxIdleConns = 2 * t.MaxIdleConnsPerHost
	t.TLSHandshakeTimeout = ci.ConnectTimeout
	t.ResponseHeaderTimeout = ci.Timeout
	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		c, err := NewDialer(ci).DialContext(ctx, network, addr)
		if err != nil {
			return c, err
		}
		return newTimeoutConn(c, ci.Timeout)
	}
	t.IdleConnTimeout = 60 * time.Second
	return &Transport{
		RoundTripper: t,
		userAgent:    ci.UserAgent,
		tpsBucket:    NewTPSBucket(ci),
		metrics:      DefaultMetrics,
	}
}

// NewClient returns an http.Client with the correct timeouts
func NewClient(ci *fs.ConfigInfo) *http.Client {
	return &http.Client{
		Transport: NewTransport(ci),
	}
}

// Transport is our http Transport which wraps an http.RoundTripper
// * Sets the User Agent
// * Limits transactions per second
// * Does logging and metrics
type Transport struct {
	http.RoundTripper
	userAgent string
	tpsBucket *rate.Limiter
	metrics   *Metrics
}

// RoundTrip implements the RoundTripper interface.
func (t *Transport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	// Get transactions per second token first if limiting
	if t.tpsBucket != nil {
		tbErr := t.tpsBucket.Wait(req.Context())
		if tbErr != nil && tbErr != context.Canceled {
			fs.Errorf(nil, "HTTP token bucket error: %v", tbErr)
		}
	}
	// Force user agent, cloning so the caller's request isn't modified
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	fs.Debugf(nil, "HTTP REQUEST %s %s", req.Method, req.URL.Redacted())
	resp, err = t.RoundTripper.RoundTrip(req)
	if err != nil {
		fs.Debugf(nil, "HTTP ERROR %s %s: %v", req.Method, req.URL.Redacted(), err)
	} else {
		fs.Debugf(nil, "HTTP RESPONSE %s %s: %s", req.Method, req.URL.Redacted(), resp.Status)
	}
	t.metrics.onResponse(req, resp)
	return resp, err
}

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/torosent/tide/internal/tracing"
)

// maxDrain bounds how much of a response body is read so the connection can
// be reused without buffering large payloads.
const maxDrain = 1 << 20

// ErrNoTarget is returned by NewGetter when the target is empty.
var ErrNoTarget = errors.New("httpclient: target URL is required")

// Getter issues a GET to a fixed target. It satisfies runner.Requester.
type Getter struct {
	client    *http.Client
	target    string
	timeout   time.Duration
	propagate bool
}

// GetterOption configures a Getter.
type GetterOption func(*Getter)

// WithTracePropagation injects W3C trace context headers into every request.
func WithTracePropagation(enabled bool) GetterOption {
	return func(g *Getter) { g.propagate = enabled }
}

// NewGetter returns a Getter that shares client across all attempts.
func NewGetter(client *http.Client, target string, opts ...GetterOption) (*Getter, error) {
	if target == "" {
		return nil, ErrNoTarget
	}
	if client == nil {
		client = http.DefaultClient
	}
	g := &Getter{client: client, target: target, timeout: client.Timeout}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Target returns the URL requested by Do.
func (g *Getter) Target() string { return g.target }

// Do performs one attempt. Any response, whatever its status, yields a nil
// error; only transport failures are returned.
func (g *Getter) Do(ctx context.Context) (int, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.target, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if g.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	return resp.StatusCode, nil
}

// NewClient returns a client whose Timeout bounds each attempt end to end.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

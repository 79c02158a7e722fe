package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

const (
	defaultMaxIdleConns    = 100
	defaultIdleConnTimeout = 60 * time.Second
	defaultTimeout         = 5 * time.Second
)

// Request describes one outbound HTTP call.
type Request struct {
	// Method defaults to GET when empty.
	Method string
	URL    string
	// Headers are set on the request as-is.
	Headers map[string]string
	// Body is sent when non-nil.
	Body []byte
	// Timeout bounds the whole exchange, including reading the body.
	// Zero means 5 seconds.
	Timeout time.Duration
}

// Response holds the result of an HTTP request made by [Client].
//
// Response captures the body (limited to 1MB), status code, latency, and any
// error that occurred.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte
	// StatusCode is the HTTP status code (e.g., 200, 404, 429).
	// Zero if the request failed before receiving a response.
	StatusCode int
	// Latency is the total time taken for the request.
	Latency time.Duration
	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// OK reports whether the request completed with a 2xx status.
func (r Response) OK() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is a keep-alive HTTP client shared by lookups and deliveries.
//
// Client uses per-request timeouts via context rather than a global timeout.
// Concurrent connections are bounded by a [Gate] whose capacity can only be
// raised, so in-flight connections are never starved by a shrinking bound.
type Client struct {
	httpClient *http.Client
	gate       *Gate
}

// NewClient creates a [Client] allowing up to maxConns concurrent requests.
func NewClient(maxConns int) *Client {
	if maxConns < 1 {
		maxConns = 1
	}
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: maxConns,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false,
			},
		},
		gate: NewGate(maxConns),
	}
}

// EnsureCapacity raises the connection bound to at least n. It never
// lowers it.
func (c *Client) EnsureCapacity(n int) {
	c.gate.Raise(n)
}

// Capacity returns the current connection bound.
func (c *Client) Capacity() int {
	return c.gate.Capacity()
}

// Do performs an HTTP request and returns a structured [Response].
//
// Do always returns a Response; errors are captured in the Error field
// rather than returned separately. Time spent waiting for a connection slot
// counts against the request timeout.
func (c *Client) Do(ctx context.Context, r Request) Response {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	if err := c.gate.Acquire(ctx); err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("waiting for connection slot: %w", err),
		}
	}
	defer c.gate.Release()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       data,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

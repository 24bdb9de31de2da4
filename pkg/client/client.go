/*
Package client is a Go client for the hitcounter HTTP API.

Status codes the API uses for expected outcomes are mapped back onto
the sentinel errors below, so callers can use errors.Is. A request is
only retried when it never reached the server, e.g. connection refused
while the server is starting. Create and Increment are not idempotent,
so a timeout after the request was sent is returned to the caller as is.
*/
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"github.com/practable/hitcounter/internal/counter"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrAlreadyExists is returned by Create when the server responds 409
	ErrAlreadyExists = counter.ErrAlreadyExists

	// ErrNotFound is returned by Read and Increment when the server responds 404
	ErrNotFound = counter.ErrNotFound
)

// Counter is a named count as reported by the server
type Counter = counter.Counter

// Client talks to one hitcounter server
type Client struct {
	base    string
	http    *http.Client
	retries int
	min     time.Duration
	max     time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the timeout for each individual request
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithRetries sets how many times a request is retried after failing to connect
func WithRetries(retries int) Option {
	return func(c *Client) {
		c.retries = retries
	}
}

// WithBackoff sets the minimum and maximum delay between retries
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.min = min
		c.max = max
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New returns a Client for the server at base, e.g. http://localhost:8080
func New(base string, opts ...Option) *Client {

	c := &Client{
		base:    strings.TrimSuffix(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		retries: 3,
		min:     100 * time.Millisecond,
		max:     2 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Health returns nil if the server reports OK
func (c *Client) Health(ctx context.Context) error {

	var h struct {
		Status string `json:"status"`
	}

	status, err := c.do(ctx, http.MethodGet, "/health", &h)
	if err != nil {
		return err
	}

	if status != http.StatusOK || h.Status != "OK" {
		return fmt.Errorf("unhealthy: status %d %q", status, h.Status)
	}

	return nil
}

// Create makes a new counter with value zero
func (c *Client) Create(ctx context.Context, name string) (Counter, error) {
	var ct Counter
	err := c.counterRequest(ctx, http.MethodPost, name, http.StatusCreated, &ct)
	return ct, err
}

// Read returns the current value of the named counter
func (c *Client) Read(ctx context.Context, name string) (int64, error) {
	var ct Counter
	err := c.counterRequest(ctx, http.MethodGet, name, http.StatusOK, &ct)
	return ct.Value, err
}

// Increment adds one to the named counter, returning the new value
func (c *Client) Increment(ctx context.Context, name string) (int64, error) {
	var ct Counter
	err := c.counterRequest(ctx, http.MethodPut, name, http.StatusOK, &ct)
	return ct.Value, err
}

// Delete removes the named counter, whether or not it exists
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.counterRequest(ctx, http.MethodDelete, name, http.StatusNoContent, nil)
}

// List returns all counters
func (c *Client) List(ctx context.Context) ([]Counter, error) {

	counters := []Counter{}

	status, err := c.do(ctx, http.MethodGet, "/counters", &counters)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", status)
	}

	return counters, nil
}

func (c *Client) counterRequest(ctx context.Context, method, name string, want int, v interface{}) error {

	var body struct {
		Counter
		Error string `json:"error"`
	}

	status, err := c.do(ctx, method, "/counters/"+url.PathEscape(name), &body)
	if err != nil {
		return err
	}

	switch status {
	case want:
		if ct, ok := v.(*Counter); ok {
			*ct = body.Counter
		}
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, body.Error)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, body.Error)
	}
}

// do makes the request, retrying failures to connect, and decodes any JSON body into v
func (c *Client) do(ctx context.Context, method, path string, v interface{}) (int, error) {

	b := &backoff.Backoff{
		Min:    c.min,
		Max:    c.max,
		Factor: 2,
		Jitter: true,
	}

	for {

		status, err := c.once(ctx, method, path, v)

		// a status means the server answered, so there is nothing to retry
		if err == nil || status != 0 {
			return status, err
		}

		// the server may already have acted on the request
		if !retryable(err) {
			return 0, err
		}

		if ctx.Err() != nil || int(b.Attempt()) >= c.retries {
			return 0, err
		}

		d := b.Duration()

		log.WithFields(log.Fields{"method": method, "path": path, "error": err.Error(), "retry_in": d.String()}).Debug("request failed, retrying")

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(d):
		}
	}
}

func (c *Client) once(ctx context.Context, method, path string, v interface{}) (int, error) {

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	if len(data) > 0 && v != nil {
		if err := json.Unmarshal(data, v); err != nil {
			return resp.StatusCode, fmt.Errorf("cannot decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// retryable reports whether err shows the request was never sent
func retryable(err error) bool {

	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var op *net.OpError
	if errors.As(err, &op) {
		return op.Op == "dial"
	}

	return false
}

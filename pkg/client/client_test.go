package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/phayes/freeport"
	"github.com/practable/hitcounter/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {

	srv := httptest.NewServer(api.New(api.Config{}))
	defer srv.Close()

	ctx := context.Background()

	c := New(srv.URL + "/")

	assert.NoError(t, c.Health(ctx))

	counters, err := c.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, counters)

	ct, err := c.Create(ctx, "x")
	assert.NoError(t, err)
	assert.Equal(t, Counter{Name: "x", Value: 0}, ct)

	_, err = c.Create(ctx, "x")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Contains(t, err.Error(), "Counter x already exists")

	v, err := c.Increment(ctx, "x")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = c.Increment(ctx, "x")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, err = c.Read(ctx, "x")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = c.Create(ctx, "y")
	assert.NoError(t, err)

	counters, err = c.List(ctx)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []Counter{{Name: "x", Value: 2}, {Name: "y", Value: 0}}, counters)

	assert.NoError(t, c.Delete(ctx, "x"))
	assert.NoError(t, c.Delete(ctx, "x"))

	_, err = c.Read(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Counter x does not exist")

	_, err = c.Increment(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoServer(t *testing.T) {

	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	c := New(fmt.Sprintf("http://127.0.0.1:%d", port),
		WithRetries(2),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithTimeout(time.Second))

	start := time.Now()
	_, err = c.Read(context.Background(), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryUntilServerStarts(t *testing.T) {

	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	closed := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		time.Sleep(100 * time.Millisecond)
		err := api.Serve(closed, &wg, api.Config{Host: "127.0.0.1", Port: port})
		if err != nil {
			t.Error(err)
		}
	}()

	defer func() {
		close(closed)
		wg.Wait()
	}()

	c := New(fmt.Sprintf("http://127.0.0.1:%d", port),
		WithRetries(20),
		WithBackoff(20*time.Millisecond, 100*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ct, err := c.Create(ctx, "late")
	assert.NoError(t, err)
	assert.Equal(t, "late", ct.Name)
}

func TestCancelledContext(t *testing.T) {

	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	c := New(fmt.Sprintf("http://127.0.0.1:%d", port),
		WithRetries(100),
		WithBackoff(50*time.Millisecond, 50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err = c.Health(ctx)
	assert.Error(t, err)
}

func TestTimeoutIsNotRetried(t *testing.T) {

	a := api.New(api.Config{})
	_, err := a.Store().Create("slow")
	require.NoError(t, err)

	var puts atomic.Int64

	// the increment is applied before the client gives up waiting
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts.Add(1)
		}
		a.ServeHTTP(w, r)
		time.Sleep(150 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL,
		WithTimeout(50*time.Millisecond),
		WithRetries(3),
		WithBackoff(time.Millisecond, 5*time.Millisecond))

	_, err = c.Increment(context.Background(), "slow")
	assert.Error(t, err)

	assert.Equal(t, int64(1), puts.Load())

	v, err := a.Store().Read("slow")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestRetryable(t *testing.T) {

	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}

	assert.True(t, retryable(dial))
	assert.True(t, retryable(fmt.Errorf("Put: %w", dial)))
	assert.True(t, retryable(fmt.Errorf("Put: %w", syscall.ECONNREFUSED)))

	assert.False(t, retryable(read))
	assert.False(t, retryable(context.DeadlineExceeded))
	assert.False(t, retryable(errors.New("unexpected EOF")))
}

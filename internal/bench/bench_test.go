package bench

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/practable/hitcounter/internal/api"
	"github.com/practable/hitcounter/internal/counter"
	"github.com/practable/hitcounter/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {

	store := counter.New()

	srv := httptest.NewServer(api.New(api.Config{Store: store}))
	defer srv.Close()

	c := client.New(srv.URL)

	report, err := Run(context.Background(), c, Config{Name: "bench", Workers: 8, Increments: 50})
	require.NoError(t, err)

	assert.True(t, report.OK(), report.String())
	assert.Equal(t, int64(400), report.Expected)
	assert.Equal(t, int64(400), report.Got)
	assert.Equal(t, int64(0), report.Errors)
	assert.Equal(t, uint64(400), report.Latency.Count)
	assert.True(t, report.Latency.Max >= report.Latency.Min)
	assert.Contains(t, report.String(), "expected 400 got 400 (ok=true)")

	v, err := store.Read("bench")
	assert.NoError(t, err)
	assert.Equal(t, int64(400), v)

	// a second run carries on from the existing value
	report, err = Run(context.Background(), c, Config{Name: "bench", Workers: 2, Increments: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(400), report.Initial)
	assert.Equal(t, int64(410), report.Got)
	assert.True(t, report.OK())
}

func TestRunBadConfig(t *testing.T) {

	c := client.New("http://127.0.0.1:1")

	_, err := Run(context.Background(), c, Config{Name: "x", Workers: 0, Increments: 1})
	assert.Error(t, err)
}

func TestReportString(t *testing.T) {

	r := Report{
		Name:     "hits",
		Expected: 12000,
		Got:      11999,
		Elapsed:  2 * time.Second,
		Latency:  Stats{Count: 12000, Mean: 0.0015},
	}

	assert.False(t, r.OK())
	assert.Contains(t, r.String(), "expected 12,000 got 11,999 (ok=false)")
	assert.Contains(t, r.String(), "(6,000/s)")
	assert.Contains(t, r.String(), "latency mean 1.5ms")

	// failed increments may have landed
	r.Errors = 10
	assert.False(t, r.OK())
	assert.Contains(t, r.String(), "expected 12,000..12,010 got 11,999 (ok=false)")

	r.Expected = 11990
	assert.True(t, r.OK())
	assert.Contains(t, r.String(), "expected 11,990..12,000 got 11,999 (ok=true)")

	r.Got = 12001
	assert.False(t, r.OK())
}

func TestRunWithTimeouts(t *testing.T) {

	a := api.New(api.Config{})

	var puts atomic.Int64

	// every fourth increment is applied but answered too late
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slow := r.Method == http.MethodPut && puts.Add(1)%4 == 0
		a.ServeHTTP(w, r)
		if slow {
			time.Sleep(150 * time.Millisecond)
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithTimeout(50*time.Millisecond))

	report, err := Run(context.Background(), c, Config{Name: "bench", Workers: 2, Increments: 8})
	require.NoError(t, err)

	assert.Equal(t, int64(16), puts.Load())
	assert.Equal(t, int64(4), report.Errors)
	assert.Equal(t, int64(12), report.Expected)
	assert.Equal(t, int64(16), report.Got)
	assert.True(t, report.OK(), report.String())
}

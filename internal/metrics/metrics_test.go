package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/practable/hitcounter/internal/counter"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {

	m := New(counter.New(), false)

	m.Observe("/counters/{name}", "PUT", 200, time.Millisecond)
	m.Observe("/counters/{name}", "PUT", 200, 2*time.Millisecond)
	m.Observe("/counters/{name}", "PUT", 404, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/counters/{name}", "PUT", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("/counters/{name}", "PUT", "404")))

}

func TestStoreCollector(t *testing.T) {

	s := counter.New()
	_, err := s.Create("a")
	require.NoError(t, err)
	_, err = s.Create("b")
	require.NoError(t, err)
	_, err = s.Increment("a")
	require.NoError(t, err)
	_, err = s.Increment("a")
	require.NoError(t, err)

	expected := `
# HELP hitcounter_counter_value Current value of each counter
# TYPE hitcounter_counter_value gauge
hitcounter_counter_value{name="a"} 2
hitcounter_counter_value{name="b"} 0
# HELP hitcounter_counters Number of counters
# TYPE hitcounter_counters gauge
hitcounter_counters 2
`
	err = testutil.CollectAndCompare(newStoreCollector(s, true), strings.NewReader(expected))
	assert.NoError(t, err)

	s.ResetAll()
	assert.Equal(t, 1, testutil.CollectAndCount(newStoreCollector(s, true)))
}

func TestStoreCollectorCountOnly(t *testing.T) {

	s := counter.New()
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Create(name)
		require.NoError(t, err)
	}

	expected := `
# HELP hitcounter_counters Number of counters
# TYPE hitcounter_counters gauge
hitcounter_counters 3
`
	err := testutil.CollectAndCompare(newStoreCollector(s, false), strings.NewReader(expected))
	assert.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(newStoreCollector(s, false)))
}

func TestStoreCollectorSkipsInvalidNames(t *testing.T) {

	s := counter.New()
	_, err := s.Create("ok")
	require.NoError(t, err)
	_, err = s.Create("bad\xff")
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(newStoreCollector(s, true)))
}

func TestHandler(t *testing.T) {

	s := counter.New()
	_, err := s.Create("hits")
	require.NoError(t, err)

	m := New(s, true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `hitcounter_counter_value{name="hits"} 0`)
	assert.Contains(t, string(body), "go_goroutines")
}

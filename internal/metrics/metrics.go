// Package metrics exports request and counter statistics in prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/practable/hitcounter/internal/counter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hitcounter"

// Metrics holds a private registry so that more than one server can run in the same process
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New returns Metrics with the request collectors, the go/process collectors,
// and a collector that reports the contents of the store on each scrape.
// Counter names are chosen by clients, so a series per counter is only
// exported when perCounter is set.
func New(store counter.Store, perCounter bool) *Metrics {

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"route", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds", Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18)},
			[]string{"route", "method"},
		),
	}

	m.registry.MustRegister(m.requests)
	m.registry.MustRegister(m.duration)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m.registry.MustRegister(newStoreCollector(store, perCounter))

	return m
}

// Observe records one completed request
func (m *Metrics) Observe(route, method string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer gives tests access to the registry without going through http
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

type storeCollector struct {
	store      counter.Store
	perCounter bool
	count      *prometheus.Desc
	value      *prometheus.Desc
}

func newStoreCollector(store counter.Store, perCounter bool) *storeCollector {
	return &storeCollector{
		store:      store,
		perCounter: perCounter,
		count:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "counters"), "Number of counters", nil, nil),
		value:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "counter_value"), "Current value of each counter", []string{"name"}, nil),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.count
	if c.perCounter {
		ch <- c.value
	}
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {

	ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(c.store.Len()))

	if !c.perCounter {
		return
	}

	for _, v := range c.store.List() {
		// names that are not valid UTF-8 cannot be label values
		m, err := prometheus.NewConstMetric(c.value, prometheus.GaugeValue, float64(v.Value), v.Name)
		if err != nil {
			continue
		}
		ch <- m
	}
}

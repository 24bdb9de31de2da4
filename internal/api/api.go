// Package api serves the counter store over HTTP.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/practable/hitcounter/internal/counter"
	"github.com/practable/hitcounter/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
)

// Config specifies parameters for the API server
type Config struct {
	Host            string
	MaxConnections  int // zero for no limit
	Metrics         bool
	MetricsCounters bool // export one series per counter name
	Port            int
	ShutdownTimeout time.Duration
	Store           counter.Store
	URL             string // external base URL; derived from each request when empty
}

// API routes requests to the store. It holds no counter state of its own.
type API struct {
	config  Config
	metrics *metrics.Metrics
	router  *mux.Router
	store   counter.Store
}

// New returns an API for config.Store, creating an empty store if none is given
func New(config Config) *API {

	if config.Store == nil {
		config.Store = counter.New()
	}

	a := &API{
		config:  config,
		metrics: metrics.New(config.Store, config.MetricsCounters),
		store:   config.Store,
	}

	a.router = a.newRouter()

	return a
}

// ServeHTTP lets the API be used directly as an http.Handler
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Store returns the store the API is serving
func (a *API) Store() counter.Store {
	return a.store
}

// baseURL is the scheme and host that clients used to reach us, unless overridden by config
func (a *API) baseURL(r *http.Request) string {

	if a.config.URL != "" {
		return strings.TrimSuffix(a.config.URL, "/")
	}

	scheme := "http"

	if r.TLS != nil {
		scheme = "https"
	}

	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host
}

// Serve runs the API until closed is closed
// Inputs
// @closed - channel will be closed when server shuts down
// @wg - waitgroup, we must wg.Done() when we are shutdown
// @config - where to listen, and the store to serve
func Serve(closed <-chan struct{}, wg *sync.WaitGroup, config Config) error {

	defer wg.Done()

	a := New(config)

	addr := net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port))

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	if config.MaxConnections > 0 {
		l = netutil.LimitListener(l, config.MaxConnections)
	}

	return a.serve(closed, l)
}

// serve handles connections on l until closed is closed or l fails
func (a *API) serve(closed <-chan struct{}, l net.Listener) error {

	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	stop := make(chan struct{})

	go func() {
		defer close(done)

		select {
		case <-closed:
		case <-stop:
			return
		}

		timeout := a.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		log.Debug("Starting to close http.Server")

		if err := srv.Shutdown(ctx); err != nil {
			log.WithField("error", err.Error()).Error("Could not gracefully shutdown http.Server")
		}
	}()

	log.WithField("addr", l.Addr().String()).Info("Listening")

	// returns ErrServerClosed on graceful close
	if err := srv.Serve(l); err != http.ErrServerClosed {
		close(stop)
		<-done
		return err
	}

	<-done

	log.Debug("Stopped http.Server")

	return nil
}

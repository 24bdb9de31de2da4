package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

// routes is the complete public surface of the service
func (a *API) routes() []route {
	return []route{
		{http.MethodGet, "/", a.handleIndex},
		{http.MethodGet, "/health", a.handleHealth},
		{http.MethodGet, "/counters", a.handleList},
		{http.MethodPost, "/counters/{name}", a.handleCreate},
		{http.MethodGet, "/counters/{name}", a.handleRead},
		{http.MethodPut, "/counters/{name}", a.handleIncrement},
		{http.MethodDelete, "/counters/{name}", a.handleDelete},
	}
}

func (a *API) newRouter() *mux.Router {

	router := mux.NewRouter()

	for _, rt := range a.routes() {
		router.HandleFunc(rt.pattern, rt.handler).Methods(rt.method)
	}

	if a.config.Metrics {
		router.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	}

	router.Use(a.instrument)

	router.NotFoundHandler = a.instrument(http.HandlerFunc(handleNotFound))
	router.MethodNotAllowedHandler = a.instrument(http.HandlerFunc(handleMethodNotAllowed))

	return router
}

package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/practable/hitcounter/internal/counter"
	log "github.com/sirupsen/logrus"
)

// curl -X GET http://localhost:8080/health
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Health{Status: "OK"})
}

// curl -X GET http://localhost:8080/
func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	log.Info("Request for Base URL")
	writeJSON(w, http.StatusOK, Info{
		Status:  http.StatusOK,
		Message: "Hit Counter Service",
		Version: Version,
		URL:     a.baseURL(r) + "/counters",
	})
}

// curl -X GET http://localhost:8080/counters
func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	log.Info("Request to list all counters")
	writeJSON(w, http.StatusOK, a.store.List())
}

// curl -X POST http://localhost:8080/counters/foo
func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {

	name, ok := nameFrom(w, r)
	if !ok {
		return
	}

	log.WithField("name", name).Info("Request to create counter")

	c, err := a.store.Create(name)

	switch {
	case errors.Is(err, counter.ErrAlreadyExists):
		writeError(w, http.StatusConflict, alreadyExists(name))
		return
	case err != nil:
		internalError(w, name, err)
		return
	}

	w.Header().Set("Location", a.baseURL(r)+"/counters/"+url.PathEscape(name))
	writeJSON(w, http.StatusCreated, c)
}

// curl -X GET http://localhost:8080/counters/foo
func (a *API) handleRead(w http.ResponseWriter, r *http.Request) {

	name, ok := nameFrom(w, r)
	if !ok {
		return
	}

	log.WithField("name", name).Info("Request to read counter")

	value, err := a.store.Read(name)

	switch {
	case errors.Is(err, counter.ErrNotFound):
		writeError(w, http.StatusNotFound, doesNotExist(name))
		return
	case err != nil:
		internalError(w, name, err)
		return
	}

	writeJSON(w, http.StatusOK, Counter{Name: name, Value: value})
}

// curl -X PUT http://localhost:8080/counters/foo
func (a *API) handleIncrement(w http.ResponseWriter, r *http.Request) {

	name, ok := nameFrom(w, r)
	if !ok {
		return
	}

	log.WithField("name", name).Info("Request to update counter")

	value, err := a.store.Increment(name)

	switch {
	case errors.Is(err, counter.ErrNotFound):
		writeError(w, http.StatusNotFound, doesNotExist(name))
		return
	case err != nil:
		internalError(w, name, err)
		return
	}

	writeJSON(w, http.StatusOK, Counter{Name: name, Value: value})
}

// curl -X DELETE http://localhost:8080/counters/foo
func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {

	name, ok := nameFrom(w, r)
	if !ok {
		return
	}

	log.WithField("name", name).Info("Request to delete counter")

	a.store.Delete(name)

	w.WriteHeader(http.StatusNoContent)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func internalError(w http.ResponseWriter, name string, err error) {
	log.WithFields(log.Fields{"name": name, "error": err.Error()}).Error("store error")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// nameFrom gets the counter name from the path, writing a 400 if it is empty.
// Any other name, including whitespace, is accepted as is.
func nameFrom(w http.ResponseWriter, r *http.Request) (string, bool) {

	name := mux.Vars(r)["name"]

	if name == "" {
		writeError(w, http.StatusBadRequest, "Counter name is required")
		return "", false
	}

	return name, true
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {

	output, err := json.Marshal(payload)
	if err != nil {
		log.WithField("error", err.Error()).Error("could not marshal response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(output)
	if err != nil {
		log.Errorf("writing error %s", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Error{Error: message})
}

func alreadyExists(name string) string {
	return fmt.Sprintf("Counter %s already exists", name)
}

func doesNotExist(name string) string {
	return fmt.Sprintf("Counter %s does not exist", name)
}

// grbwatch/handlers/admin_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gewnthar/grbwatch/services"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "handlers")

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Error marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	log.Warnf("API Error %d: %s", code, message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

// UpdateHandler runs one update cycle on POST /api/admin/update and returns
// its result. A cycle already in progress is waited for.
func UpdateHandler(updater *services.Updater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
			return
		}

		res, err := updater.UpdateEvents(r.Context())
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Update cycle failed: %v", err))
			return
		}
		if res.StoreMissing {
			respondWithError(w, http.StatusConflict, fmt.Sprintf("Events file %s does not exist", updater.EventsFile))
			return
		}
		respondWithJSON(w, http.StatusOK, res)
	}
}

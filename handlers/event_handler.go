// grbwatch/handlers/event_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gewnthar/grbwatch/database"
	"github.com/gewnthar/grbwatch/models"
	"github.com/gewnthar/grbwatch/services"
)

// EventsHandler serves GET /api/events. The optional limit query parameter
// returns only the highest trigger ids.
func EventsHandler(eventsFile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter: "+v)
				return
			}
			limit = n
		}

		table, err := database.ReadEvents(eventsFile)
		if err != nil {
			if errors.Is(err, database.ErrEventsFileNotFound) {
				respondWithError(w, http.StatusNotFound, "Events file not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		alerts := table.Alerts
		if alerts == nil {
			alerts = []models.Alert{}
		}
		if limit > 0 && limit < len(alerts) {
			alerts = alerts[len(alerts)-limit:]
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"count":  len(table.Alerts),
			"alerts": alerts,
		})
	}
}

// HealthHandler reports the last cycle outcome and, when the archive is
// enabled, the database connection state.
func HealthHandler(updater *services.Updater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if database.DB != nil {
			if err := database.DB.PingContext(r.Context()); err != nil {
				log.Errorf("Health check failed: DB ping error: %v", err)
				respondWithJSON(w, http.StatusInternalServerError, map[string]string{
					"status":  "error",
					"message": "database connection error",
				})
				return
			}
		}

		body := map[string]interface{}{"status": "ok"}
		last, err := updater.LastResult()
		if !last.FinishedAt.IsZero() {
			body["last_update"] = last
		}
		if err != nil {
			body["status"] = "degraded"
			body["last_error"] = err.Error()
		}
		respondWithJSON(w, http.StatusOK, body)
	}
}

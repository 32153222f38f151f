package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"diettracker/internal/logger"
	"diettracker/internal/model"
	"diettracker/internal/services"
)

// ProfileHandler returns the user's latest stored profile with BMR, TDEE
// and goal.
func ProfileHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mux.Vars(r)["user"]

		report, err := manager.Profile(user)
		if errors.Is(err, services.ErrNoProfile) {
			writeError(w, http.StatusNotFound, "No profile stored for "+user, logger)
			return
		}
		if err != nil {
			logger.Error("Error loading profile for %s: %v", user, err)
			writeError(w, http.StatusInternalServerError, "Unable to load profile", logger)
			return
		}
		writeJSON(w, http.StatusOK, report, logger)
	}
}

// EventsHandler lists the user's events for ?date=YYYY-MM-DD, today by default.
func EventsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mux.Vars(r)["user"]

		date := time.Now()
		if v := r.URL.Query().Get("date"); v != "" {
			parsed, err := time.ParseInLocation(model.DateLayout, v, time.Local)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid date format, want YYYY-MM-DD", logger)
				return
			}
			date = parsed
		}

		report, err := manager.Today(user, date)
		if err != nil {
			logger.Error("Error reading events for %s: %v", user, err)
			writeError(w, http.StatusInternalServerError, "Unable to read events", logger)
			return
		}
		writeJSON(w, http.StatusOK, report, logger)
	}
}

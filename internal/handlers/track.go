package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"diettracker/internal/logger"
	"diettracker/internal/model"
	"diettracker/internal/services"
	"diettracker/internal/services/camera"
	"diettracker/internal/session"
)

// MaxUploadSize bounds the multipart body of a tracking request.
const MaxUploadSize = 10 << 20

var profileFields = []string{"age", "gender", "height", "weight", "activity_level", "goal"}

// TrackHandler runs a tracking session for a multipart upload with fields
// user, image and, for a first-time user or a profile update, the
// biometrics. Aborted sessions are still 200; the state says what happened.
func TrackHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form", logger)
			return
		}

		user := strings.TrimSpace(r.FormValue("user"))
		if user == "" {
			writeError(w, http.StatusBadRequest, "user is required", logger)
			return
		}

		fresh, err := profileFromForm(r, user)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), logger)
			return
		}

		image, err := readUpload(r, "image")
		if err != nil {
			logger.Error("Error reading upload: %v", err)
			writeError(w, http.StatusBadRequest, "Unable to read image", logger)
			return
		}

		result, err := manager.Track(user, fresh, camera.BytesSource(image))
		if err != nil {
			writeError(w, trackStatus(err), err.Error(), logger)
			return
		}
		writeJSON(w, http.StatusOK, result, logger)
	}
}

// profileFromForm returns nil when no biometric field was sent.
func profileFromForm(r *http.Request, user string) (*model.ProfileInput, error) {
	present := false
	for _, field := range profileFields {
		if r.FormValue(field) != "" {
			present = true
			break
		}
	}
	if !present {
		return nil, nil
	}

	in := &model.ProfileInput{
		Name:          user,
		Gender:        r.FormValue("gender"),
		ActivityLevel: r.FormValue("activity_level"),
		Goal:          r.FormValue("goal"),
	}

	var err error
	if in.Age, err = strconv.Atoi(r.FormValue("age")); err != nil {
		return nil, &model.ValidationError{Field: "age", Reason: "must be a whole number"}
	}
	if in.HeightCm, err = strconv.ParseFloat(r.FormValue("height"), 64); err != nil {
		return nil, &model.ValidationError{Field: "height", Reason: "must be a number"}
	}
	if in.WeightKg, err = strconv.ParseFloat(r.FormValue("weight"), 64); err != nil {
		return nil, &model.ValidationError{Field: "weight", Reason: "must be a number"}
	}
	if v := r.FormValue("replace"); v != "" {
		if in.Replace, err = strconv.ParseBool(v); err != nil {
			return nil, &model.ValidationError{Field: "replace", Reason: "must be true or false"}
		}
	}
	return in, nil
}

// readUpload returns nil data when the field is missing; the session then
// aborts as a cancelled capture.
func readUpload(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func trackStatus(err error) int {
	var validation *model.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, session.ErrProfileRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"diettracker/internal/config"
	"diettracker/internal/logger"
	"diettracker/internal/services/storage"
)

// PhotoInfo describes one archived meal photo.
type PhotoInfo struct {
	Name      string   `json:"name"`
	Timestamp string   `json:"timestamp"`
	User      string   `json:"user"`
	Foods     []string `json:"foods"`
	Size      int64    `json:"size"`
}

// PhotosData is a paginated list of archived photos, newest first.
type PhotosData struct {
	Photos      []PhotoInfo `json:"photos"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}

// PhotosHandler lists archived meal photos. Supports ?user=, ?food=, ?page=
// and ?limit=.
func PhotosHandler(config *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)
		user := q.Get("user")
		food := q.Get("food")
		if user != "" {
			user = storage.SanitizeLabel(user)
		}
		if food != "" {
			food = storage.SanitizeLabel(strings.ToLower(food))
		}

		files, err := os.ReadDir(config.ImageDirectory)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Error("Error reading image directory: %v", err)
			writeError(w, http.StatusInternalServerError, "Unable to read photos", logger)
			return
		}

		photos := make([]PhotoInfo, 0)
		for _, e := range files {
			if e.IsDir() {
				continue
			}
			photo, err := storage.ParseFilename(e.Name())
			if err != nil {
				logger.Warning("Skipping %s: %v", e.Name(), err)
				continue
			}
			if user != "" && !strings.EqualFold(photo.User, user) {
				continue
			}
			if food != "" && !slices.Contains(photo.Foods, food) {
				continue
			}

			var size int64
			if info, err := e.Info(); err == nil {
				size = info.Size()
			}
			photos = append(photos, PhotoInfo{
				Name:      e.Name(),
				Timestamp: photo.Timestamp,
				User:      photo.User,
				Foods:     photo.Foods,
				Size:      size,
			})
		}

		slices.SortFunc(photos, func(a, b PhotoInfo) int {
			return strings.Compare(b.Name, a.Name)
		})

		start := min((page-1)*limit, len(photos))
		end := min(start+limit, len(photos))

		writeJSON(w, http.StatusOK, PhotosData{
			Photos:      photos[start:end],
			Length:      len(photos),
			TotalPages:  (len(photos) + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// ViewPhotoHandler serves one archived photo named by ?image=.
func ViewPhotoHandler(config *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := filepath.Base(r.URL.Query().Get("image"))
		if image == "." || image == string(filepath.Separator) {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(config.ImageDirectory, image))
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

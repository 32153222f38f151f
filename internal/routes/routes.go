package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"diettracker/internal/config"
	"diettracker/internal/handlers"
	"diettracker/internal/logger"
	"diettracker/internal/middleware"
	"diettracker/internal/services"
)

// SetupRoutes registers the API and log routes and wraps the router
// with request logging and CORS.
func SetupRoutes(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/track", handlers.TrackHandler(manager, logger)).Methods(http.MethodPost)
	api.HandleFunc("/users/{user}/profile", handlers.ProfileHandler(manager, logger)).Methods(http.MethodGet)
	api.HandleFunc("/users/{user}/events", handlers.EventsHandler(manager, logger)).Methods(http.MethodGet)
	api.HandleFunc("/catalog", handlers.CatalogHandler(manager, logger)).Methods(http.MethodGet)
	api.HandleFunc("/photos", handlers.PhotosHandler(cfg, logger)).Methods(http.MethodGet)
	api.HandleFunc("/photos/view", handlers.ViewPhotoHandler(cfg)).Methods(http.MethodGet)
	api.HandleFunc("/view", handlers.ViewWebsocketHandler(manager, logger))

	r.HandleFunc("/logs/{level}", handlers.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level}/clear", handlers.ClearLogsHandler(logger)).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(middleware.Logging(logger)(r))
}

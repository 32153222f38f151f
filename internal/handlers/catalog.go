package handlers

import (
	"net/http"

	"diettracker/internal/logger"
	"diettracker/internal/services"
)

type catalogEntry struct {
	Label    string  `json:"label"`
	Calories float64 `json:"calories"`
}

type catalogResponse struct {
	Foods     []catalogEntry `json:"foods"`
	Threshold float64        `json:"confidence_threshold"`
}

// CatalogHandler lists the accepted foods with their calories per serving.
func CatalogHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := manager.Catalog()
		labels := c.Labels()

		resp := catalogResponse{
			Foods:     make([]catalogEntry, 0, len(labels)),
			Threshold: manager.Threshold(),
		}
		for _, label := range labels {
			kcal, _ := c.CaloriesFor(label)
			resp.Foods = append(resp.Foods, catalogEntry{Label: label, Calories: kcal})
		}
		writeJSON(w, http.StatusOK, resp, logger)
	}
}

package detection

import (
	"strings"

	"diettracker/internal/model"
)

// DefaultConfidenceThreshold is the minimum confidence a detection needs to be kept.
const DefaultConfidenceThreshold = 0.5

// LabelSet is the whitelist of accepted, lower-case labels.
type LabelSet interface {
	Accepts(label string) bool
}

// FilterDetections keeps detections with confidence >= threshold whose
// lower-cased label is accepted. Order and duplicates follow the detector
// output. Non-food detections are dropped silently.
func FilterDetections(raw []model.DetectedItem, threshold float64, accepted LabelSet) []string {
	foods := make([]string, 0, len(raw))
	for _, det := range raw {
		if det.Confidence < threshold {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(det.Label))
		if !accepted.Accepts(label) {
			continue
		}
		foods = append(foods, label)
	}
	return foods
}

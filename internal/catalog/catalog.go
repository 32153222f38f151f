// Package catalog holds the closed set of food labels the tracker understands
// and their calorie values per detected unit.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"diettracker/internal/model"
)

// defaultCalories covers the COCO classes that are food.
var defaultCalories = map[string]float64{
	"banana":   105,
	"apple":    95,
	"sandwich": 250,
	"orange":   62,
	"broccoli": 55,
	"carrot":   25,
	"hot dog":  150,
	"pizza":    285,
	"donut":    195,
	"cake":     235,
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	calories map[string]float64
}

// New builds a catalog, lower-casing labels. Duplicate labels after
// normalization and non-positive calories are rejected.
func New(entries map[string]float64) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog must not be empty")
	}

	calories := make(map[string]float64, len(entries))
	for label, kcal := range entries {
		key := Normalize(label)
		if key == "" {
			return nil, fmt.Errorf("catalog label must not be empty")
		}
		if kcal <= 0 {
			return nil, fmt.Errorf("calories for %q must be positive, got %g", key, kcal)
		}
		if _, dup := calories[key]; dup {
			return nil, fmt.Errorf("duplicate catalog label %q", key)
		}
		calories[key] = kcal
	}

	return &Catalog{calories: calories}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCalories)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a YAML mapping of label to calories, e.g.
//
//	apple: 95
//	hot dog: 150
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var entries map[string]float64
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return New(entries)
}

// Normalize is the label form used as catalog key.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// AcceptedLabels returns every label in the catalog. The result is a copy.
func (c *Catalog) AcceptedLabels() map[string]struct{} {
	labels := make(map[string]struct{}, len(c.calories))
	for label := range c.calories {
		labels[label] = struct{}{}
	}
	return labels
}

// Labels returns the accepted labels sorted.
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.calories))
	for label := range c.calories {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Accepts reports whether an already normalized label is in the catalog.
func (c *Catalog) Accepts(label string) bool {
	_, ok := c.calories[label]
	return ok
}

// CaloriesFor returns *model.UnknownFoodError for labels outside the catalog.
func (c *Catalog) CaloriesFor(label string) (float64, error) {
	kcal, ok := c.calories[label]
	if !ok {
		return 0, &model.UnknownFoodError{Label: label}
	}
	return kcal, nil
}

// Total sums calories over labels, one entry per detected instance.
func (c *Catalog) Total(labels []string) (float64, error) {
	var total float64
	for _, label := range labels {
		kcal, err := c.CaloriesFor(label)
		if err != nil {
			return 0, err
		}
		total += kcal
	}
	return total, nil
}

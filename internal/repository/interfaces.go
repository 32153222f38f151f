package repository

import (
	"strings"
	"time"

	"diettracker/internal/model"
)

// EventLog is the append-only record of tracking events. Implementations
// serialize Append internally; a log file or database must have a single
// writing process.
type EventLog interface {
	// Append persists event at the end of the log. A missing store is created.
	Append(event model.TrackingEvent) error

	// Query returns matching events in append order. A nil predicate matches all.
	Query(match Predicate) ([]model.TrackingEvent, error)

	// DailyTotal sums total_calories of user's events on date's calendar day.
	DailyTotal(user string, date time.Time) (float64, error)

	Close() error
}

// Predicate selects events for Query.
type Predicate func(model.TrackingEvent) bool

// ForUser matches events of user.
func ForUser(user string) Predicate {
	return func(e model.TrackingEvent) bool {
		return e.User == user
	}
}

// OnDate matches events whose timestamp falls on date's calendar day.
func OnDate(date time.Time) Predicate {
	day := date.Format(model.DateLayout)
	return func(e model.TrackingEvent) bool {
		return strings.HasPrefix(e.Timestamp, day)
	}
}

// All matches events satisfying every predicate.
func All(predicates ...Predicate) Predicate {
	return func(e model.TrackingEvent) bool {
		for _, p := range predicates {
			if p != nil && !p(e) {
				return false
			}
		}
		return true
	}
}

// Filter applies match to events, keeping order.
func Filter(events []model.TrackingEvent, match Predicate) []model.TrackingEvent {
	if match == nil {
		return events
	}
	var matched []model.TrackingEvent
	for _, e := range events {
		if match(e) {
			matched = append(matched, e)
		}
	}
	return matched
}

// SumCalories totals total_calories across events.
func SumCalories(events []model.TrackingEvent) float64 {
	var total float64
	for _, e := range events {
		total += e.TotalCalories
	}
	return total
}

package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"diettracker/internal/model"
	"diettracker/internal/repository"
)

// EventRepository implements repository.EventLog for SQLite. Append order is
// the autoincrement id.
type EventRepository struct {
	db *DB
}

var _ repository.EventLog = (*EventRepository)(nil)

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

const insertEvent = `
	INSERT INTO events (timestamp, user, profile, foods, total_calories, daily_goal)
	VALUES (?, ?, ?, ?, ?, ?)
`

// Append adds a new event record to the database.
func (r *EventRepository) Append(event model.TrackingEvent) error {
	r.db.Lock()
	defer r.db.Unlock()

	args, err := eventArgs(event)
	if err != nil {
		return err
	}

	if _, err := r.db.Conn().Exec(insertEvent, args...); err != nil {
		return fmt.Errorf("%w: failed to insert event: %w", model.ErrStorageUnavailable, err)
	}
	return nil
}

// AppendBatch adds events in order inside a single transaction.
func (r *EventRepository) AppendBatch(events []model.TrackingEvent) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", model.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertEvent)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare statement: %w", model.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	for _, event := range events {
		args, err := eventArgs(event)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("%w: failed to insert event: %w", model.ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit events: %w", model.ErrStorageUnavailable, err)
	}
	return nil
}

// Query retrieves all events in append order and applies match.
func (r *EventRepository) Query(match repository.Predicate) ([]model.TrackingEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT timestamp, user, profile, foods, total_calories, daily_goal
		FROM events ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query events: %w", model.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var events []model.TrackingEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if match == nil || match(event) {
			events = append(events, event)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read events: %w", model.ErrStorageUnavailable, err)
	}

	return events, nil
}

// DailyTotal sums calories in SQL using the timestamp's day prefix.
func (r *EventRepository) DailyTotal(user string, date time.Time) (float64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var total float64
	err := r.db.Conn().QueryRow(`
		SELECT COALESCE(SUM(total_calories), 0)
		FROM events WHERE user = ? AND substr(timestamp, 1, 10) = ?
	`, user, date.Format(model.DateLayout)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to sum calories: %w", model.ErrStorageUnavailable, err)
	}

	return total, nil
}

// Count returns the number of stored events.
func (r *EventRepository) Count() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count events: %w", model.ErrStorageUnavailable, err)
	}
	return count, nil
}

// Close closes the underlying database.
func (r *EventRepository) Close() error {
	return r.db.Close()
}

func eventArgs(event model.TrackingEvent) ([]interface{}, error) {
	var profile sql.NullString
	if event.Profile != nil {
		data, err := json.Marshal(event.Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to encode profile: %w", err)
		}
		profile = sql.NullString{String: string(data), Valid: true}
	}

	foods, err := json.Marshal(event.Foods)
	if err != nil {
		return nil, fmt.Errorf("failed to encode foods: %w", err)
	}

	return []interface{}{event.Timestamp, event.User, profile, string(foods), event.TotalCalories, event.DailyGoal}, nil
}

func scanEvent(rows *sql.Rows) (model.TrackingEvent, error) {
	var (
		event   model.TrackingEvent
		profile sql.NullString
		foods   string
	)
	if err := rows.Scan(&event.Timestamp, &event.User, &profile, &foods, &event.TotalCalories, &event.DailyGoal); err != nil {
		return event, fmt.Errorf("%w: failed to scan event: %w", model.ErrStorageUnavailable, err)
	}

	if err := json.Unmarshal([]byte(foods), &event.Foods); err != nil {
		return event, fmt.Errorf("%w: corrupt foods column: %w", model.ErrStorageUnavailable, err)
	}
	if profile.Valid {
		event.Profile = &model.ProfileSnapshot{}
		if err := json.Unmarshal([]byte(profile.String), event.Profile); err != nil {
			return event, fmt.Errorf("%w: corrupt profile column: %w", model.ErrStorageUnavailable, err)
		}
	}

	return event, nil
}

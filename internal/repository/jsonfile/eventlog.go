// Package jsonfile stores the event log as a single JSON array on disk, the
// format of tracker_log.json.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"diettracker/internal/model"
	"diettracker/internal/repository"
)

// EventLog implements repository.EventLog over one JSON file.
type EventLog struct {
	path string
	mu   sync.Mutex
}

var _ repository.EventLog = (*EventLog)(nil)

// New does not touch the file; a missing file reads as an empty log.
func New(path string) *EventLog {
	return &EventLog{path: path}
}

// Path returns the backing file.
func (l *EventLog) Path() string {
	return l.path
}

// Append reads the whole log, adds event and rewrites the file through a
// temp file + rename so readers never see a half-written array.
func (l *EventLog) Append(event model.TrackingEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return err
	}
	events = append(events, event)

	return l.save(events)
}

func (l *EventLog) Query(match repository.Predicate) ([]model.TrackingEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return nil, err
	}
	return repository.Filter(events, match), nil
}

func (l *EventLog) DailyTotal(user string, date time.Time) (float64, error) {
	events, err := l.Query(repository.All(repository.ForUser(user), repository.OnDate(date)))
	if err != nil {
		return 0, err
	}
	return repository.SumCalories(events), nil
}

// Close is a no-op for JSON files.
func (l *EventLog) Close() error {
	return nil
}

func (l *EventLog) load() ([]model.TrackingEvent, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", model.ErrStorageUnavailable, l.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var events []model.TrackingEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", model.ErrStorageUnavailable, l.path, err)
	}
	return events, nil
}

func (l *EventLog) save(events []model.TrackingEvent) error {
	data, err := json.MarshalIndent(events, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode events: %w", model.ErrStorageUnavailable, err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", model.ErrStorageUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", model.ErrStorageUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write events: %w", model.ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync events: %w", model.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temp file: %w", model.ErrStorageUnavailable, err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %w", model.ErrStorageUnavailable, l.path, err)
	}
	return nil
}

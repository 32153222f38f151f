// Package services wires the tracking engine to its collaborators: a pool of
// detectors, the event log, the photo archive and the live viewer hub.
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"diettracker/internal/catalog"
	"diettracker/internal/config"
	"diettracker/internal/detection"
	"diettracker/internal/energy"
	"diettracker/internal/logger"
	"diettracker/internal/model"
	"diettracker/internal/profile"
	"diettracker/internal/repository"
	"diettracker/internal/services/storage"
	"diettracker/internal/services/websocket"
	"diettracker/internal/session"
)

// ErrNoProfile means the user has never logged a meal.
var ErrNoProfile = errors.New("no stored profile")

// Annotator is implemented by detectors that can draw their boxes on a photo.
type Annotator interface {
	DrawDetections(items []model.DetectedItem, img []byte, caption func(model.DetectedItem) string) ([]byte, error)
}

type Manager struct {
	detectors        chan session.Detector
	catalog          *catalog.Catalog
	eventLog         repository.EventLog
	bufferService    *storage.BufferService
	websocketService *websocket.HubService
	threshold        float64
	now              func() time.Time
	logger           *logger.Logger
}

// NewManager builds a manager around at least one detector. bufferService and
// websocketService may be nil, e.g. for the command line tool.
func NewManager(
	detectors []session.Detector,
	catalog *catalog.Catalog,
	eventLog repository.EventLog,
	bufferService *storage.BufferService,
	websocketService *websocket.HubService,
	config *config.Config,
	logger *logger.Logger,
) (*Manager, error) {
	if len(detectors) == 0 {
		return nil, fmt.Errorf("at least one detector is required")
	}

	pool := make(chan session.Detector, len(detectors))
	for _, d := range detectors {
		pool <- d
	}

	threshold := config.ConfidenceThreshold
	if threshold == 0 {
		threshold = detection.DefaultConfidenceThreshold
	}

	manager := &Manager{
		detectors:        pool,
		catalog:          catalog,
		eventLog:         eventLog,
		bufferService:    bufferService,
		websocketService: websocketService,
		threshold:        threshold,
		now:              time.Now,
		logger:           logger,
	}

	manager.logger.Info("Manager started with %d detector(s), threshold %.2f", len(detectors), manager.threshold)
	return manager, nil
}

// Track runs one full session for user. It blocks until a detector is free.
func (m *Manager) Track(user string, fresh *model.ProfileInput, src session.ImageSource) (*session.Result, error) {
	detector := <-m.detectors
	defer func() { m.detectors <- detector }()

	s := session.New(user, session.Dependencies{
		Catalog:   m.catalog,
		Detector:  detector,
		Log:       m.eventLog,
		Threshold: m.threshold,
		Now:       m.now,
		Logger:    m.logger,
	})

	result, err := s.Run(fresh, src)
	if err != nil {
		m.logger.Error("Session %s for %s failed: %v", s.ID(), user, err)
		return result, err
	}
	m.logger.Info("Session %s for %s finished: %s", s.ID(), user, result.State)

	if result.State == session.StateLogged {
		m.archivePhoto(detector, s, result)
		if m.websocketService != nil && result.Event != nil {
			m.websocketService.BroadcastEvent(*result.Event, result.Remaining, result.Message)
		}
	}
	return result, nil
}

// archivePhoto queues the photo with the accepted foods boxed and captioned
// with their calories. An annotation failure falls back to the raw photo.
func (m *Manager) archivePhoto(detector session.Detector, s *session.Session, result *session.Result) {
	if m.bufferService == nil {
		return
	}

	photo := s.Image()
	if annotator, ok := detector.(Annotator); ok {
		var accepted []model.DetectedItem
		for _, item := range s.Detections() {
			if item.Confidence >= m.threshold && m.catalog.Accepts(catalog.Normalize(item.Label)) {
				accepted = append(accepted, item)
			}
		}

		annotated, err := annotator.DrawDetections(accepted, photo, m.caption)
		if err != nil {
			m.logger.Error("Failed to draw detections: %v", err)
		} else {
			photo = annotated
		}
	}

	m.bufferService.AddImage(photo, result.User, result.Foods)
}

func (m *Manager) caption(item model.DetectedItem) string {
	label := catalog.Normalize(item.Label)
	kcal, err := m.catalog.CaloriesFor(label)
	if err != nil {
		return label
	}
	return fmt.Sprintf("%s | %.0f kcal", label, kcal)
}

// DailyReport is one user's intake for one calendar day.
type DailyReport struct {
	User          string                `json:"user"`
	Date          string                `json:"date"`
	Events        []model.TrackingEvent `json:"events"`
	TotalCalories float64               `json:"total_calories"`
	DailyGoal     int                   `json:"daily_goal"`
	Remaining     float64               `json:"remaining"`
	Message       string                `json:"message,omitempty"`
}

// Today reports the user's events on date. The goal comes from the latest
// event of that day; a day without events has no goal and no message.
func (m *Manager) Today(user string, date time.Time) (*DailyReport, error) {
	user = strings.TrimSpace(user)
	events, err := m.eventLog.Query(repository.All(repository.ForUser(user), repository.OnDate(date)))
	if err != nil {
		return nil, err
	}

	total, err := m.eventLog.DailyTotal(user, date)
	if err != nil {
		return nil, err
	}

	report := &DailyReport{
		User:          user,
		Date:          date.Format(model.DateLayout),
		Events:        events,
		TotalCalories: total,
	}
	if len(events) > 0 {
		report.DailyGoal = events[len(events)-1].DailyGoal
		report.Remaining = float64(report.DailyGoal) - report.TotalCalories
		report.Message = session.RemainingMessage(report.Remaining)
	}
	return report, nil
}

// ProfileReport is a stored profile with its energy figures.
type ProfileReport struct {
	Profile model.UserProfile `json:"profile"`
	Energy  energy.Summary    `json:"energy"`
}

// Profile loads the user's latest stored profile. ErrNoProfile when there
// is none.
func (m *Manager) Profile(user string) (*ProfileReport, error) {
	p, err := profile.LoadProfile(user, m.eventLog)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNoProfile
	}

	summary, err := energy.Summarize(*p)
	if err != nil {
		return nil, err
	}
	return &ProfileReport{Profile: *p, Energy: summary}, nil
}

// Catalog exposes the accepted foods.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

// Threshold is the effective confidence threshold.
func (m *Manager) Threshold() float64 {
	return m.threshold
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// Close closes the event log. Detectors are owned by the caller.
func (m *Manager) Close() error {
	return m.eventLog.Close()
}

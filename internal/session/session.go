// Package session runs one tracking cycle: resolve profile, compute goal,
// capture an image, detect foods, score them against the goal and log the event.
package session

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"diettracker/internal/catalog"
	"diettracker/internal/detection"
	"diettracker/internal/energy"
	"diettracker/internal/logger"
	"diettracker/internal/model"
	"diettracker/internal/profile"
	"diettracker/internal/repository"
)

var (
	// ErrProfileRequired means the user has no stored profile and none was supplied.
	ErrProfileRequired = errors.New("no stored profile, biometrics required")
	// ErrInvalidTransition means a step was called out of order.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// ImageSource supplies the meal photo. ok is false when the user cancelled.
type ImageSource interface {
	Capture() (image []byte, ok bool, err error)
}

// Detector is the external recognition model.
type Detector interface {
	Detect(image []byte) ([]model.DetectedItem, error)
}

// Dependencies are injected per session; nothing is process global.
type Dependencies struct {
	Catalog  *catalog.Catalog
	Detector Detector
	Log      repository.EventLog

	// Threshold is the minimum detection confidence. Zero means
	// detection.DefaultConfidenceThreshold.
	Threshold float64

	Now    func() time.Time
	Logger *logger.Logger
}

type Session struct {
	id    string
	user  string
	deps  Dependencies
	state State
	abort AbortReason

	profile       model.UserProfile
	profileReused bool
	dailyGoal     int
	image         []byte
	detections    []model.DetectedItem
	foods         []string
	totalCalories float64
	remaining     float64
	event         *model.TrackingEvent
}

// New starts a session for user in StateNew.
func New(user string, deps Dependencies) *Session {
	if deps.Threshold == 0 {
		deps.Threshold = detection.DefaultConfidenceThreshold
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}

	return &Session{
		id:    uuid.NewString(),
		user:  strings.TrimSpace(user),
		deps:  deps,
		state: StateNew,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.state }

func (s *Session) AbortReason() AbortReason { return s.abort }

// Image returns the captured photo, nil before capture.
func (s *Session) Image() []byte { return s.image }

// Detections returns the raw detector output, before filtering.
func (s *Session) Detections() []model.DetectedItem { return s.detections }

// Run drives the session to Logged or Aborted. fresh may be nil for a
// returning user. The result is filled in as far as the session got, also
// when an error is returned.
func (s *Session) Run(fresh *model.ProfileInput, src ImageSource) (*Result, error) {
	steps := []func() error{
		func() error { return s.ResolveProfile(fresh) },
		s.ComputeGoal,
		func() error { return s.Capture(src) },
		s.Detect,
		s.Evaluate,
		s.Finalize,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return s.Result(), err
		}
		if s.state.Terminal() {
			break
		}
	}
	return s.Result(), nil
}

// ResolveProfile reuses the user's latest stored profile. fresh is used when
// there is none, or when fresh.Replace is set.
func (s *Session) ResolveProfile(fresh *model.ProfileInput) error {
	if err := s.expect(StateNew); err != nil {
		return err
	}
	if s.user == "" {
		return s.fail(&model.ValidationError{Field: "name", Reason: "must not be empty"})
	}

	stored, err := profile.LoadProfile(s.user, s.deps.Log)
	if err != nil {
		return s.fail(fmt.Errorf("failed to load profile: %w", err))
	}

	var p model.UserProfile
	switch {
	case stored != nil && (fresh == nil || !fresh.Replace):
		p = *stored
		s.profileReused = true
		s.deps.Logger.Info("[%s] Found saved profile for %s", s.id, s.user)
	case fresh != nil:
		in := *fresh
		in.Name = s.user
		if p, err = model.NewUserProfile(in); err != nil {
			return s.fail(err)
		}
	default:
		return s.fail(ErrProfileRequired)
	}

	if err := p.Validate(); err != nil {
		return s.fail(err)
	}

	s.profile = p
	s.state = StateProfileResolved
	return nil
}

// ComputeGoal rounds the daily goal once; every later comparison and the
// stored event use the rounded value.
func (s *Session) ComputeGoal() error {
	if err := s.expect(StateProfileResolved); err != nil {
		return err
	}

	goal, err := energy.DailyCalorieGoal(s.profile)
	if err != nil {
		return s.fail(err)
	}

	s.dailyGoal = energy.RoundGoal(goal)
	s.state = StateGoalComputed
	s.deps.Logger.Info("[%s] Daily calorie target for %s: %d kcal", s.id, s.user, s.dailyGoal)
	return nil
}

// Capture aborts the session with AbortNoImage when src yields nothing.
func (s *Session) Capture(src ImageSource) error {
	if err := s.expect(StateGoalComputed); err != nil {
		return err
	}
	if src == nil {
		return s.stop(AbortNoImage)
	}

	img, ok, err := src.Capture()
	if err != nil {
		return s.fail(fmt.Errorf("failed to capture image: %w", err))
	}
	if !ok || len(img) == 0 {
		return s.stop(AbortNoImage)
	}

	s.image = img
	s.state = StateImageCaptured
	return nil
}

// Detect aborts with AbortNoFood when nothing in the image is a catalog food.
func (s *Session) Detect() error {
	if err := s.expect(StateImageCaptured); err != nil {
		return err
	}
	if s.deps.Detector == nil {
		return s.fail(errors.New("no detector configured"))
	}

	raw, err := s.deps.Detector.Detect(s.image)
	if err != nil {
		return s.fail(fmt.Errorf("failed to detect objects: %w", err))
	}
	s.detections = raw

	foods := detection.FilterDetections(raw, s.deps.Threshold, s.deps.Catalog)
	if len(foods) == 0 {
		return s.stop(AbortNoFood)
	}

	s.foods = foods
	s.state = StateFoodsDetected
	s.deps.Logger.Info("[%s] Detected %s", s.id, strings.Join(foods, ", "))
	return nil
}

// Evaluate totals calories and compares them with the goal.
func (s *Session) Evaluate() error {
	if err := s.expect(StateFoodsDetected); err != nil {
		return err
	}

	total, err := s.deps.Catalog.Total(s.foods)
	if err != nil {
		var unknown *model.UnknownFoodError
		if errors.As(err, &unknown) {
			s.deps.Logger.Error("[%s] Catalog and detection filter disagree on %q", s.id, unknown.Label)
		}
		return s.fail(err)
	}

	s.totalCalories = total
	s.remaining = float64(s.dailyGoal) - total
	s.state = StateEvaluated
	return nil
}

// Finalize appends the event. Storage errors are returned, never retried.
func (s *Session) Finalize() error {
	if err := s.expect(StateEvaluated); err != nil {
		return err
	}

	event := model.TrackingEvent{
		Timestamp:     model.FormatTimestamp(s.deps.Now()),
		User:          s.user,
		Profile:       s.profile.Snapshot(),
		Foods:         append([]string(nil), s.foods...),
		TotalCalories: s.totalCalories,
		DailyGoal:     s.dailyGoal,
	}

	if err := s.deps.Log.Append(event); err != nil {
		s.deps.Logger.Error("[%s] Failed to log entry for %s: %v", s.id, s.user, err)
		return s.fail(err)
	}

	s.event = &event
	s.state = StateLogged
	s.deps.Logger.Info("[%s] Entry logged for %s: %.0f kcal", s.id, s.user, s.totalCalories)
	return nil
}

// Result snapshots the session.
func (s *Session) Result() *Result {
	r := &Result{
		SessionID:     s.id,
		User:          s.user,
		State:         s.state,
		AbortReason:   s.abort,
		ProfileReused: s.profileReused,
		DailyGoal:     s.dailyGoal,
		Foods:         s.foods,
		TotalCalories: s.totalCalories,
		Remaining:     s.remaining,
		Event:         s.event,
	}
	if s.profile.Name != "" {
		p := s.profile
		r.Profile = &p
	}

	switch s.state {
	case StateEvaluated, StateLogged:
		r.Message = RemainingMessage(s.remaining)
	case StateAborted:
		r.Message = s.abort.Message()
	}
	return r
}

func (s *Session) expect(want State) error {
	if s.state != want {
		return fmt.Errorf("%w: in %s, step needs %s", ErrInvalidTransition, s.state, want)
	}
	return nil
}

func (s *Session) stop(reason AbortReason) error {
	s.state = StateAborted
	s.abort = reason
	s.deps.Logger.Warning("[%s] Session for %s aborted: %s", s.id, s.user, reason.Message())
	return nil
}

func (s *Session) fail(err error) error {
	s.state = StateAborted
	s.abort = AbortFailed
	return err
}

// RemainingMessage reports a positive remaining as under goal, anything else as exceeded.
func RemainingMessage(remaining float64) string {
	rounded := math.Round(remaining)
	if remaining > 0 {
		return fmt.Sprintf("You're within your goal. Remaining: %.0f kcal", rounded)
	}
	return fmt.Sprintf("You've exceeded your goal by %.0f kcal", math.Abs(rounded))
}

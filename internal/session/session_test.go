package session

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"diettracker/internal/catalog"
	"diettracker/internal/logger"
	"diettracker/internal/model"
	"diettracker/internal/repository"
	"diettracker/internal/repository/jsonfile"
)

type fakeSource struct {
	image  []byte
	ok     bool
	err    error
	called bool
}

func (f *fakeSource) Capture() ([]byte, bool, error) {
	f.called = true
	return f.image, f.ok, f.err
}

func photo() *fakeSource {
	return &fakeSource{image: []byte("jpeg"), ok: true}
}

type fakeDetector struct {
	items []model.DetectedItem
	err   error
}

func (f fakeDetector) Detect([]byte) ([]model.DetectedItem, error) {
	return f.items, f.err
}

type failingLog struct {
	repository.EventLog
}

func (failingLog) Append(model.TrackingEvent) error {
	return model.ErrStorageUnavailable
}

var fixedNow = time.Date(2025, 6, 15, 12, 30, 0, 0, time.Local)

func referenceInput() *model.ProfileInput {
	return &model.ProfileInput{Age: 30, Gender: "Male", HeightCm: 175, WeightKg: 70, ActivityLevel: "moderate", Goal: "maintain"}
}

func newDeps(t *testing.T, detector Detector) Dependencies {
	t.Helper()
	c, err := catalog.New(map[string]float64{"apple": 95, "banana": 105, "pizza": 1400})
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return Dependencies{
		Catalog:  c,
		Detector: detector,
		Log:      jsonfile.New(filepath.Join(t.TempDir(), "tracker_log.json")),
		Now:      func() time.Time { return fixedNow },
		Logger:   logger.Discard(),
	}
}

func TestRun_LogsEvent(t *testing.T) {
	detector := fakeDetector{items: []model.DetectedItem{
		{Label: "Apple", Confidence: 0.9},
		{Label: "Car", Confidence: 0.95},
		{Label: "banana", Confidence: 0.4},
	}}
	deps := newDeps(t, detector)

	result, err := New("Asha", deps).Run(referenceInput(), photo())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.State != StateLogged {
		t.Fatalf("Expected logged, got %s", result.State)
	}
	if result.DailyGoal != 2556 {
		t.Errorf("Expected goal 2556, got %d", result.DailyGoal)
	}
	if !reflect.DeepEqual(result.Foods, []string{"apple"}) || result.TotalCalories != 95 {
		t.Errorf("Unexpected foods/total: %v / %v", result.Foods, result.TotalCalories)
	}
	if result.Remaining != 2461 {
		t.Errorf("Expected remaining 2461, got %v", result.Remaining)
	}
	if result.Message != "You're within your goal. Remaining: 2461 kcal" {
		t.Errorf("Unexpected message: %s", result.Message)
	}

	events, err := deps.Log.Query(nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	want := model.TrackingEvent{
		Timestamp:     "2025-06-15 12:30:00",
		User:          "Asha",
		Profile:       &model.ProfileSnapshot{Age: 30, Gender: "male", Height: 175, Weight: 70, ActivityLevel: "moderate", Goal: "maintain"},
		Foods:         []string{"apple"},
		TotalCalories: 95,
		DailyGoal:     2556,
	}
	if !reflect.DeepEqual(events[0], want) {
		t.Errorf("Expected %+v, got %+v", want, events[0])
	}
	if !reflect.DeepEqual(*result.Event, want) {
		t.Errorf("Result event differs from logged event: %+v", result.Event)
	}
}

func TestRun_ExceededGoal(t *testing.T) {
	items := []model.DetectedItem{{Label: "pizza", Confidence: 0.8}, {Label: "pizza", Confidence: 0.7}}
	deps := newDeps(t, fakeDetector{items: items})

	result, err := New("Asha", deps).Run(referenceInput(), photo())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalCalories != 2800 {
		t.Fatalf("Expected 2800 kcal, got %v", result.TotalCalories)
	}
	if result.Remaining != -244 {
		t.Errorf("Expected remaining -244, got %v", result.Remaining)
	}
	if !strings.Contains(result.Message, "exceeded your goal by 244") {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestRun_ReusesStoredProfile(t *testing.T) {
	deps := newDeps(t, fakeDetector{items: []model.DetectedItem{{Label: "apple", Confidence: 0.9}}})
	deps.Log.Append(model.TrackingEvent{
		Timestamp: "2025-06-14 08:00:00",
		User:      "Asha",
		Profile:   &model.ProfileSnapshot{Age: 30, Gender: "female", Height: 160, Weight: 55, Goal: "lose"},
		Foods:     []string{"apple"},
	})

	result, err := New("Asha", deps).Run(nil, photo())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.ProfileReused {
		t.Error("Expected stored profile to be reused")
	}
	if result.Profile.Gender != model.Female || result.Profile.Goal != model.Lose {
		t.Errorf("Unexpected profile: %+v", result.Profile)
	}
	// 10*55 + 6.25*160 - 150 - 161 = 1239; *1.55 = 1920.45; -500 = 1420.45
	if result.DailyGoal != 1420 {
		t.Errorf("Expected goal 1420, got %d", result.DailyGoal)
	}
}

func TestRun_ReplaceOverridesStoredProfile(t *testing.T) {
	deps := newDeps(t, fakeDetector{items: []model.DetectedItem{{Label: "apple", Confidence: 0.9}}})
	deps.Log.Append(model.TrackingEvent{User: "Asha", Profile: &model.ProfileSnapshot{Age: 30, Gender: "female", Height: 160, Weight: 55}})

	in := referenceInput()
	in.Replace = true
	result, err := New("Asha", deps).Run(in, photo())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ProfileReused || result.DailyGoal != 2556 {
		t.Errorf("Expected fresh profile to win, got reused=%v goal=%d", result.ProfileReused, result.DailyGoal)
	}
}

func TestRun_FirstTimeUserWithoutBiometrics(t *testing.T) {
	src := photo()
	result, err := New("Asha", newDeps(t, fakeDetector{})).Run(nil, src)

	if !errors.Is(err, ErrProfileRequired) {
		t.Fatalf("Expected ErrProfileRequired, got %v", err)
	}
	if result.State != StateAborted || src.called {
		t.Errorf("Session should abort before capture, state=%s captured=%v", result.State, src.called)
	}
}

func TestRun_InvalidGenderAbortsBeforeCapture(t *testing.T) {
	in := referenceInput()
	in.Gender = "unknown"
	src := photo()
	deps := newDeps(t, fakeDetector{})

	result, err := New("Asha", deps).Run(in, src)

	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if src.called {
		t.Error("Image must not be requested after a validation failure")
	}
	if result.State != StateAborted || result.AbortReason != AbortFailed {
		t.Errorf("Unexpected state %s/%s", result.State, result.AbortReason)
	}
	if events, _ := deps.Log.Query(nil); len(events) != 0 {
		t.Errorf("Expected empty log, got %d events", len(events))
	}
}

func TestRun_InvalidStoredProfile(t *testing.T) {
	deps := newDeps(t, fakeDetector{})
	deps.Log.Append(model.TrackingEvent{User: "Asha", Profile: &model.ProfileSnapshot{Age: 30, Gender: "x", Height: 160, Weight: 55}})

	_, err := New("Asha", deps).Run(nil, photo())
	var verr *model.ValidationError
	if !errors.As(err, &verr) || verr.Field != "gender" {
		t.Errorf("Expected gender ValidationError, got %v", err)
	}
}

func TestRun_Aborts(t *testing.T) {
	tests := []struct {
		name     string
		src      ImageSource
		detector fakeDetector
		reason   AbortReason
		message  string
	}{
		{"cancelled capture", &fakeSource{ok: false}, fakeDetector{}, AbortNoImage, "Capture cancelled."},
		{"no source", nil, fakeDetector{}, AbortNoImage, "Capture cancelled."},
		{"no food", photo(), fakeDetector{items: []model.DetectedItem{{Label: "car", Confidence: 0.99}}}, AbortNoFood, "No food items detected."},
		{"low confidence", photo(), fakeDetector{items: []model.DetectedItem{{Label: "apple", Confidence: 0.2}}}, AbortNoFood, "No food items detected."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newDeps(t, tt.detector)

			result, err := New("Asha", deps).Run(referenceInput(), tt.src)
			if err != nil {
				t.Fatalf("Abort is not an error, got %v", err)
			}
			if result.State != StateAborted || result.AbortReason != tt.reason {
				t.Errorf("Expected aborted/%s, got %s/%s", tt.reason, result.State, result.AbortReason)
			}
			if result.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, result.Message)
			}
			if events, _ := deps.Log.Query(nil); len(events) != 0 {
				t.Errorf("Aborted session must not log, got %d events", len(events))
			}
		})
	}
}

func TestRun_DetectorError(t *testing.T) {
	deps := newDeps(t, fakeDetector{err: errors.New("model not loaded")})

	result, err := New("Asha", deps).Run(referenceInput(), photo())
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("Expected detector error, got %v", err)
	}
	if result.AbortReason != AbortFailed {
		t.Errorf("Expected failed abort, got %s", result.AbortReason)
	}
}

func TestRun_StorageErrorPropagates(t *testing.T) {
	deps := newDeps(t, fakeDetector{items: []model.DetectedItem{{Label: "apple", Confidence: 0.9}}})
	deps.Log = failingLog{EventLog: deps.Log}

	result, err := New("Asha", deps).Run(referenceInput(), photo())
	if !errors.Is(err, model.ErrStorageUnavailable) {
		t.Fatalf("Expected ErrStorageUnavailable, got %v", err)
	}
	if result.Event != nil {
		t.Error("No event should be reported when append fails")
	}
}

func TestEvaluate_UnknownFoodIsLoggedLoudly(t *testing.T) {
	var errOut bytes.Buffer
	deps := newDeps(t, fakeDetector{})
	deps.Logger = logger.New(&bytes.Buffer{}, &errOut)

	s := New("Asha", deps)
	s.state = StateFoodsDetected
	s.foods = []string{"kiwi"}

	err := s.Evaluate()
	var unknown *model.UnknownFoodError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownFoodError, got %v", err)
	}
	if !strings.Contains(errOut.String(), "kiwi") {
		t.Errorf("Expected error log mentioning kiwi, got %q", errOut.String())
	}
}

func TestSteps_OutOfOrder(t *testing.T) {
	s := New("Asha", newDeps(t, fakeDetector{}))

	if err := s.Detect(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if s.State() != StateNew {
		t.Errorf("Invalid transition must not change state, got %s", s.State())
	}
}

func TestRemainingMessage(t *testing.T) {
	tests := []struct {
		remaining float64
		want      string
	}{
		{2461, "You're within your goal. Remaining: 2461 kcal"},
		{0.4, "You're within your goal. Remaining: 0 kcal"},
		{0, "You've exceeded your goal by 0 kcal"},
		{-244, "You've exceeded your goal by 244 kcal"},
		{-243.6, "You've exceeded your goal by 244 kcal"},
	}
	for _, tt := range tests {
		if got := RemainingMessage(tt.remaining); got != tt.want {
			t.Errorf("RemainingMessage(%v) = %q, want %q", tt.remaining, got, tt.want)
		}
	}
}

func TestState_String(t *testing.T) {
	if StateFoodsDetected.String() != "foods_detected" {
		t.Errorf("Unexpected name %s", StateFoodsDetected)
	}
	if !StateLogged.Terminal() || !StateAborted.Terminal() || StateEvaluated.Terminal() {
		t.Error("Only logged and aborted are terminal")
	}
}

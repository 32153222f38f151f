package session

import (
	"fmt"

	"diettracker/internal/model"
)

type State int

const (
	StateNew State = iota
	StateProfileResolved
	StateGoalComputed
	StateImageCaptured
	StateFoodsDetected
	StateEvaluated
	StateLogged
	StateAborted
)

var stateNames = map[State]string{
	StateNew:             "new",
	StateProfileResolved: "profile_resolved",
	StateGoalComputed:    "goal_computed",
	StateImageCaptured:   "image_captured",
	StateFoodsDetected:   "foods_detected",
	StateEvaluated:       "evaluated",
	StateLogged:          "logged",
	StateAborted:         "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further step is possible.
func (s State) Terminal() bool {
	return s == StateLogged || s == StateAborted
}

// AbortReason says why a session ended without a log entry.
type AbortReason string

const (
	AbortNone    AbortReason = ""
	AbortNoImage AbortReason = "no_image"
	AbortNoFood  AbortReason = "no_food"
	AbortFailed  AbortReason = "failed"
)

func (r AbortReason) Message() string {
	switch r {
	case AbortNoImage:
		return "Capture cancelled."
	case AbortNoFood:
		return "No food items detected."
	case AbortFailed:
		return "Session failed."
	default:
		return ""
	}
}

// Result is what a presentation layer needs from a finished session.
type Result struct {
	SessionID     string               `json:"session_id"`
	User          string               `json:"user"`
	State         State                `json:"state"`
	AbortReason   AbortReason          `json:"abort_reason,omitempty"`
	Profile       *model.UserProfile   `json:"profile,omitempty"`
	ProfileReused bool                 `json:"profile_reused"`
	DailyGoal     int                  `json:"daily_goal"`
	Foods         []string             `json:"foods"`
	TotalCalories float64              `json:"total_calories"`
	Remaining     float64              `json:"remaining"`
	Message       string               `json:"message"`
	Event         *model.TrackingEvent `json:"event,omitempty"`
}

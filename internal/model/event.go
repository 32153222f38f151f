package model

import "time"

// TimestampLayout is the layout of TrackingEvent.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the day prefix of TimestampLayout.
const DateLayout = "2006-01-02"

// TrackingEvent is one logged meal. Field names are the persisted log format.
type TrackingEvent struct {
	Timestamp     string           `json:"timestamp"`
	User          string           `json:"user"`
	Profile       *ProfileSnapshot `json:"profile,omitempty"`
	Foods         []string         `json:"foods"`
	TotalCalories float64          `json:"total_calories"`
	DailyGoal     int              `json:"daily_goal"`
}

// ProfileSnapshot is the biometric record embedded in an event. Older log
// entries have no activity_level.
type ProfileSnapshot struct {
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	Height        float64 `json:"height"`
	Weight        float64 `json:"weight"`
	ActivityLevel string  `json:"activity_level,omitempty"`
	Goal          string  `json:"goal"`
}

// Profile rebuilds a normalized, unvalidated profile for user.
func (s ProfileSnapshot) Profile(user string) UserProfile {
	return UserProfile{
		Name:          user,
		Age:           s.Age,
		Gender:        ParseGender(s.Gender),
		HeightCm:      s.Height,
		WeightKg:      s.Weight,
		ActivityLevel: ParseActivityLevel(s.ActivityLevel),
		Goal:          ParseGoal(s.Goal),
	}
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

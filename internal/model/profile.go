package model

import (
	"fmt"
	"strings"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very_active"
)

// DefaultActivityLevel is used when a profile does not state one.
const DefaultActivityLevel = Moderate

type Goal string

const (
	Lose     Goal = "lose"
	Maintain Goal = "maintain"
	Gain     Goal = "gain"
)

// UserProfile is the biometric snapshot a session computes its goal from.
type UserProfile struct {
	Name          string        `json:"name"`
	Age           int           `json:"age"`
	Gender        Gender        `json:"gender"`
	HeightCm      float64       `json:"height_cm"`
	WeightKg      float64       `json:"weight_kg"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Goal          Goal          `json:"goal"`
}

// ProfileInput is the structured form of freshly collected biometrics. The same
// input serves the console, the HTTP form and tests.
type ProfileInput struct {
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
	Goal          string  `json:"goal"`

	// Replace makes the input win over a stored profile.
	Replace bool `json:"replace"`
}

// NewUserProfile normalizes and validates input.
func NewUserProfile(in ProfileInput) (UserProfile, error) {
	p := UserProfile{
		Name:          strings.TrimSpace(in.Name),
		Age:           in.Age,
		Gender:        ParseGender(in.Gender),
		HeightCm:      in.HeightCm,
		WeightKg:      in.WeightKg,
		ActivityLevel: ParseActivityLevel(in.ActivityLevel),
		Goal:          ParseGoal(in.Goal),
	}
	if err := p.Validate(); err != nil {
		return UserProfile{}, err
	}
	return p, nil
}

// Validate checks the hard invariants. Unknown activity levels pass; they fall
// back to the sedentary multiplier when the goal is computed.
func (p UserProfile) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Age <= 0 {
		return &ValidationError{Field: "age", Reason: fmt.Sprintf("must be positive, got %d", p.Age)}
	}
	if p.Gender != Male && p.Gender != Female {
		return &ValidationError{Field: "gender", Reason: fmt.Sprintf("%q is not male or female", p.Gender)}
	}
	if p.HeightCm <= 0 {
		return &ValidationError{Field: "height", Reason: fmt.Sprintf("must be positive, got %g", p.HeightCm)}
	}
	if p.WeightKg <= 0 {
		return &ValidationError{Field: "weight", Reason: fmt.Sprintf("must be positive, got %g", p.WeightKg)}
	}
	return nil
}

// Snapshot converts the profile into the form embedded in log events.
func (p UserProfile) Snapshot() *ProfileSnapshot {
	return &ProfileSnapshot{
		Age:           p.Age,
		Gender:        string(p.Gender),
		Height:        p.HeightCm,
		Weight:        p.WeightKg,
		ActivityLevel: string(p.ActivityLevel),
		Goal:          string(p.Goal),
	}
}

// ParseGender lower-cases and trims. It does not reject anything; Validate does.
func ParseGender(s string) Gender {
	return Gender(strings.ToLower(strings.TrimSpace(s)))
}

// ParseActivityLevel normalizes spelling ("Very Active", "very-active") to the
// enum form. Empty input maps to DefaultActivityLevel, anything else unknown is
// kept as given.
func ParseActivityLevel(s string) ActivityLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultActivityLevel
	}
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return ActivityLevel(s)
}

// ParseGoal maps unrecognized input to Maintain.
func ParseGoal(s string) Goal {
	switch g := Goal(strings.ToLower(strings.TrimSpace(s))); g {
	case Lose, Maintain, Gain:
		return g
	default:
		return Maintain
	}
}

// Package energy estimates daily energy needs from biometrics using the
// Mifflin-St Jeor equation.
package energy

import (
	"fmt"
	"math"

	"diettracker/internal/model"
)

const (
	maleOffset   = 5.0
	femaleOffset = -161.0

	// GoalAdjustment is the daily shift applied for lose and gain goals.
	GoalAdjustment = 500.0

	// FallbackMultiplier applies to activity levels outside the table.
	FallbackMultiplier = 1.2
)

var activityMultipliers = map[model.ActivityLevel]float64{
	model.Sedentary:  1.2,
	model.Light:      1.375,
	model.Moderate:   1.55,
	model.Active:     1.725,
	model.VeryActive: 1.9,
}

// BasalMetabolicRate returns resting kcal/day.
func BasalMetabolicRate(p model.UserProfile) (float64, error) {
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)

	switch p.Gender {
	case model.Male:
		return base + maleOffset, nil
	case model.Female:
		return base + femaleOffset, nil
	default:
		return 0, &model.ValidationError{Field: "gender", Reason: fmt.Sprintf("%q is not male or female", p.Gender)}
	}
}

// ActivityMultiplier never fails: an unknown level gets FallbackMultiplier so a
// typo does not block a session.
func ActivityMultiplier(level model.ActivityLevel) float64 {
	if m, ok := activityMultipliers[level]; ok {
		return m
	}
	return FallbackMultiplier
}

// TotalDailyExpenditure is BMR scaled by activity.
func TotalDailyExpenditure(p model.UserProfile) (float64, error) {
	bmr, err := BasalMetabolicRate(p)
	if err != nil {
		return 0, err
	}
	return bmr * ActivityMultiplier(p.ActivityLevel), nil
}

// DailyCalorieGoal shifts TDEE by GoalAdjustment for lose/gain. Unrecognized
// goals are treated as maintain.
func DailyCalorieGoal(p model.UserProfile) (float64, error) {
	tdee, err := TotalDailyExpenditure(p)
	if err != nil {
		return 0, err
	}

	switch p.Goal {
	case model.Lose:
		return tdee - GoalAdjustment, nil
	case model.Gain:
		return tdee + GoalAdjustment, nil
	default:
		return tdee, nil
	}
}

// RoundGoal is the single rounding step applied before a goal is compared or stored.
func RoundGoal(goal float64) int {
	return int(math.Round(goal))
}

type Summary struct {
	Name      string  `json:"name"`
	BMR       float64 `json:"bmr"`
	TDEE      float64 `json:"tdee"`
	DailyGoal float64 `json:"daily_calorie_goal"`
}

// Summarize reports BMR, TDEE and goal rounded to two decimals.
func Summarize(p model.UserProfile) (Summary, error) {
	bmr, err := BasalMetabolicRate(p)
	if err != nil {
		return Summary{}, err
	}
	tdee, _ := TotalDailyExpenditure(p)
	goal, _ := DailyCalorieGoal(p)

	return Summary{
		Name:      p.Name,
		BMR:       round2(bmr),
		TDEE:      round2(tdee),
		DailyGoal: round2(goal),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

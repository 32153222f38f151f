package energy

import (
	"errors"
	"math"
	"testing"

	"diettracker/internal/model"
)

const epsilon = 1e-9

func referenceProfile() model.UserProfile {
	return model.UserProfile{
		Name:          "Asha",
		Age:           30,
		Gender:        model.Male,
		HeightCm:      175,
		WeightKg:      70,
		ActivityLevel: model.Moderate,
		Goal:          model.Maintain,
	}
}

func TestReferenceScenario(t *testing.T) {
	p := referenceProfile()

	bmr, err := BasalMetabolicRate(p)
	if err != nil {
		t.Fatalf("BasalMetabolicRate failed: %v", err)
	}
	if math.Abs(bmr-1648.75) > epsilon {
		t.Errorf("BMR: got %v, want 1648.75", bmr)
	}

	tdee, err := TotalDailyExpenditure(p)
	if err != nil {
		t.Fatalf("TotalDailyExpenditure failed: %v", err)
	}
	if math.Abs(tdee-2555.5625) > 1e-6 {
		t.Errorf("TDEE: got %v, want 2555.5625", tdee)
	}

	goal, err := DailyCalorieGoal(p)
	if err != nil {
		t.Fatalf("DailyCalorieGoal failed: %v", err)
	}
	if math.Abs(goal-tdee) > epsilon {
		t.Errorf("Maintain goal should equal TDEE: %v vs %v", goal, tdee)
	}
	if RoundGoal(goal) != 2556 {
		t.Errorf("Rounded goal: got %d, want 2556", RoundGoal(goal))
	}
}

func TestBasalMetabolicRate_Female(t *testing.T) {
	p := referenceProfile()
	p.Gender = model.Female

	bmr, err := BasalMetabolicRate(p)
	if err != nil {
		t.Fatalf("BasalMetabolicRate failed: %v", err)
	}
	if want := 1648.75 - 5 - 161; math.Abs(bmr-want) > epsilon {
		t.Errorf("BMR: got %v, want %v", bmr, want)
	}
}

func TestBasalMetabolicRate_InvalidGender(t *testing.T) {
	p := referenceProfile()
	p.Gender = "robot"

	_, err := BasalMetabolicRate(p)
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	if _, err := DailyCalorieGoal(p); !errors.As(err, &verr) {
		t.Errorf("DailyCalorieGoal should propagate ValidationError, got %v", err)
	}
}

func TestBasalMetabolicRate_Deterministic(t *testing.T) {
	p := referenceProfile()
	first, _ := BasalMetabolicRate(p)
	for i := 0; i < 100; i++ {
		got, _ := BasalMetabolicRate(p)
		if math.Float64bits(got) != math.Float64bits(first) {
			t.Fatalf("Call %d returned %v, first call returned %v", i, got, first)
		}
	}
}

func TestActivityMultiplier(t *testing.T) {
	tests := []struct {
		level model.ActivityLevel
		want  float64
	}{
		{model.Sedentary, 1.2},
		{model.Light, 1.375},
		{model.Moderate, 1.55},
		{model.Active, 1.725},
		{model.VeryActive, 1.9},
		{"marathoner", 1.2},
		{"", 1.2},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := ActivityMultiplier(tt.level); got != tt.want {
				t.Errorf("ActivityMultiplier(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestDailyCalorieGoal_MonotonicInGoal(t *testing.T) {
	profiles := []model.UserProfile{
		referenceProfile(),
		{Name: "b", Age: 52, Gender: model.Female, HeightCm: 158, WeightKg: 81.4, ActivityLevel: model.Sedentary},
		{Name: "c", Age: 19, Gender: model.Male, HeightCm: 190.5, WeightKg: 95, ActivityLevel: model.VeryActive},
		{Name: "d", Age: 35, Gender: model.Female, HeightCm: 170, WeightKg: 60, ActivityLevel: "unknown"},
	}

	for _, p := range profiles {
		goals := map[model.Goal]float64{}
		for _, g := range []model.Goal{model.Lose, model.Maintain, model.Gain, "unrecognized"} {
			p.Goal = g
			v, err := DailyCalorieGoal(p)
			if err != nil {
				t.Fatalf("DailyCalorieGoal(%s) failed: %v", g, err)
			}
			goals[g] = v
		}

		if !(goals[model.Lose] < goals[model.Maintain] && goals[model.Maintain] < goals[model.Gain]) {
			t.Errorf("%s: goals not ordered: %v", p.Name, goals)
		}
		if d := goals[model.Maintain] - goals[model.Lose]; math.Abs(d-500) > 1e-6 {
			t.Errorf("%s: lose offset %v, want 500", p.Name, d)
		}
		if d := goals[model.Gain] - goals[model.Maintain]; math.Abs(d-500) > 1e-6 {
			t.Errorf("%s: gain offset %v, want 500", p.Name, d)
		}
		if goals["unrecognized"] != goals[model.Maintain] {
			t.Errorf("%s: unrecognized goal should behave as maintain", p.Name)
		}
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(referenceProfile())
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.BMR != 1648.75 || s.TDEE != 2555.56 || s.DailyGoal != 2555.56 {
		t.Errorf("Unexpected summary: %+v", s)
	}
}

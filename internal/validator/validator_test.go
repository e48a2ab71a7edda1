package validator

import (
	"testing"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"github.com/stretchr/testify/assert"
)

func validProfile() *model.ProfileSnapshot {
	return &model.ProfileSnapshot{
		Goal:         model.GoalMuscleGain,
		TrainingDays: 4,
		MealCount:    4,
		DietaryPrefs: []string{model.DietVegetarian},
	}
}

func TestValidateProfile(t *testing.T) {
	v := NewCustomValidator()

	tests := []struct {
		name   string
		mutate func(*model.ProfileSnapshot)
		valid  bool
	}{
		{
			name:   "valid profile",
			mutate: func(p *model.ProfileSnapshot) {},
			valid:  true,
		},
		{
			name:   "unknown goal",
			mutate: func(p *model.ProfileSnapshot) { p.Goal = "get-swole" },
			valid:  false,
		},
		{
			name:   "missing goal",
			mutate: func(p *model.ProfileSnapshot) { p.Goal = "" },
			valid:  false,
		},
		{
			name:   "zero training days",
			mutate: func(p *model.ProfileSnapshot) { p.TrainingDays = 0 },
			valid:  false,
		},
		{
			name:   "eight training days",
			mutate: func(p *model.ProfileSnapshot) { p.TrainingDays = 8 },
			valid:  false,
		},
		{
			name:   "meal count above range",
			mutate: func(p *model.ProfileSnapshot) { p.MealCount = 9 },
			valid:  false,
		},
		{
			name:   "meal count zero defaults later",
			mutate: func(p *model.ProfileSnapshot) { p.MealCount = 0 },
			valid:  true,
		},
		{
			name: "two dietary bases conflict",
			mutate: func(p *model.ProfileSnapshot) {
				p.DietaryPrefs = []string{model.DietVegetarian, model.DietNonVeg}
			},
			valid: false,
		},
		{
			name: "free-form pref alongside one base",
			mutate: func(p *model.ProfileSnapshot) {
				p.DietaryPrefs = []string{model.DietEggitarian, "low-sodium"}
			},
			valid: true,
		},
		{
			name:   "no dietary prefs",
			mutate: func(p *model.ProfileSnapshot) { p.DietaryPrefs = nil },
			valid:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := validProfile()
			tt.mutate(profile)
			err := v.Validate(profile)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

package service

import (
	"testing"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func fullProfile() *model.ProfileSnapshot {
	return &model.ProfileSnapshot{
		Goal:          model.GoalMuscleGain,
		TrainingDays:  4,
		MealCount:     4,
		Age:           intPtr(28),
		Sex:           strPtr("male"),
		HeightCM:      floatPtr(180),
		WeightKG:      floatPtr(80),
		ActivityLevel: strPtr("moderately"),
	}
}

func TestComputeBMRMifflinStJeor(t *testing.T) {
	// 10*80 + 6.25*180 - 5*28 + 5 = 1790
	assert.InDelta(t, 1790, ComputeBMR(fullProfile()), 0.01)

	female := fullProfile()
	female.Sex = strPtr("female")
	// male offset +5 vs female -161
	assert.InDelta(t, 1624, ComputeBMR(female), 0.01)
}

func TestComputeBMRDefaultsWithoutBodyMetrics(t *testing.T) {
	profile := fullProfile()
	profile.WeightKG = nil
	assert.Equal(t, float64(2000), ComputeBMR(profile))
}

func TestComputeTDEEMultipliers(t *testing.T) {
	tests := []struct {
		level string
		mult  float64
	}{
		{"sedentary", 1.2},
		{"lightly", 1.375},
		{"moderately", 1.55},
		{"very", 1.725},
		{"extra", 1.9},
		{"unknown-level", 1.55},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			profile := fullProfile()
			profile.ActivityLevel = strPtr(tt.level)
			assert.InDelta(t, 1790*tt.mult, ComputeTDEE(profile), 0.01)
		})
	}

	profile := fullProfile()
	profile.ActivityLevel = nil
	assert.InDelta(t, 1790*1.55, ComputeTDEE(profile), 0.01)
}

func TestComputeCalorieTarget(t *testing.T) {
	t.Run("explicit target wins", func(t *testing.T) {
		profile := fullProfile()
		profile.CalorieTarget = intPtr(2600)
		assert.Equal(t, float64(2600), ComputeCalorieTarget(profile))
	})

	t.Run("muscle gain surplus", func(t *testing.T) {
		profile := fullProfile()
		assert.InDelta(t, 1790*1.55*1.10, ComputeCalorieTarget(profile), 0.01)
	})

	t.Run("weight loss deficit", func(t *testing.T) {
		profile := fullProfile()
		profile.Goal = model.GoalWeightLoss
		assert.InDelta(t, 1790*1.55*0.85, ComputeCalorieTarget(profile), 0.01)
	})

	t.Run("other goals unchanged", func(t *testing.T) {
		profile := fullProfile()
		profile.Goal = model.GoalEndurance
		assert.InDelta(t, 1790*1.55, ComputeCalorieTarget(profile), 0.01)
	})
}

func TestComputeProteinTarget(t *testing.T) {
	t.Run("muscle gain at 2.2 g per kg", func(t *testing.T) {
		// The 80 kg muscle-gain profile lands at 176 g.
		assert.InDelta(t, 176, ComputeProteinTarget(fullProfile()), 0.01)
	})

	t.Run("default at 1.8 g per kg", func(t *testing.T) {
		profile := fullProfile()
		profile.Goal = model.GoalGeneralFitness
		assert.InDelta(t, 144, ComputeProteinTarget(profile), 0.01)
	})

	t.Run("fallback without weight", func(t *testing.T) {
		profile := fullProfile()
		profile.WeightKG = nil
		expected := ComputeCalorieTarget(profile) * 0.30 / 4
		assert.InDelta(t, expected, ComputeProteinTarget(profile), 0.01)
	})
}

func TestComputeTargetsRounds(t *testing.T) {
	targets := ComputeTargets(fullProfile())
	assert.Equal(t, float64(1790), targets.BMR)
	assert.Equal(t, float64(2775), targets.TDEE) // 2774.5 rounds up
	assert.Equal(t, float64(176), targets.ProteinG)
}

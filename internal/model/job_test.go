package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	split := WorkoutSplit{
		"monday": {Rest: false, Focus: []string{"Chest"}, Intensity: IntensityHigh},
	}
	cp := &Checkpoint{
		Phase:        PhaseSplitComplete,
		WorkoutSplit: &split,
		DailyReasons: map[string]string{"monday": "go lift"},
	}

	payload, err := cp.ToMap()
	require.NoError(t, err)

	job := &PlanJob{CheckpointPhase: PhaseSplitComplete, CheckpointData: payload}
	restored, err := CheckpointFromJob(job)
	require.NoError(t, err)

	assert.Equal(t, PhaseSplitComplete, restored.Phase)
	require.NotNil(t, restored.WorkoutSplit)
	assert.Equal(t, []string{"Chest"}, (*restored.WorkoutSplit)["monday"].Focus)
	assert.Equal(t, "go lift", restored.DailyReasons["monday"])
}

func TestCheckpointFromJobEmpty(t *testing.T) {
	cp, err := CheckpointFromJob(&PlanJob{})
	require.NoError(t, err)
	assert.Equal(t, PhaseNone, cp.Phase)
	assert.Nil(t, cp.WorkoutSplit)
}

func TestCheckpointPhaseNeverRegressesBelowJob(t *testing.T) {
	// The job row's phase column wins when the payload lags behind it.
	cp := &Checkpoint{Phase: PhaseSplitComplete}
	payload, err := cp.ToMap()
	require.NoError(t, err)

	job := &PlanJob{CheckpointPhase: PhaseSupplementsComplete, CheckpointData: payload}
	restored, err := CheckpointFromJob(job)
	require.NoError(t, err)
	assert.Equal(t, PhaseSupplementsComplete, restored.Phase)
}

func TestProfileDecoding(t *testing.T) {
	job := &PlanJob{
		ProfileSnapshot: JSONMap{
			"goal":         GoalMuscleGain,
			"trainingDays": float64(4),
			"mealCount":    float64(4),
			"dietaryPrefs": []interface{}{DietVegetarian},
			"weightKg":     float64(80),
		},
	}
	profile, err := job.Profile()
	require.NoError(t, err)
	assert.Equal(t, GoalMuscleGain, profile.Goal)
	assert.Equal(t, 4, profile.TrainingDays)
	assert.Equal(t, DietVegetarian, profile.DietBase())
	assert.Equal(t, 4, profile.MealsPerDay())
}

func TestMealsPerDayDefault(t *testing.T) {
	profile := &ProfileSnapshot{}
	assert.Equal(t, 3, profile.MealsPerDay())

	profile.MealCount = 6
	assert.Equal(t, 6, profile.MealsPerDay())
}

func TestSplitTrainingDayCount(t *testing.T) {
	split := WorkoutSplit{
		"monday":  {Rest: false},
		"tuesday": {Rest: true},
		"friday":  {Rest: false},
	}
	assert.Equal(t, 2, split.TrainingDayCount())
}

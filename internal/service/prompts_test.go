package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestSplitPromptContract(t *testing.T) {
	builder := NewPromptBuilder(fullProfile())
	prompt := builder.BuildSplitPrompt()

	// The exact training-day count and the full weekday key set are part
	// of the contract.
	assert.Contains(t, prompt.User, "EXACTLY 4 training days")
	for _, day := range model.Weekdays {
		assert.Contains(t, prompt.User, day)
	}
	assert.Contains(t, prompt.User, `"high", "moderate", "low", "rest"`)
	assert.Contains(t, prompt.System, "Do NOT wrap the JSON in Markdown")
}

func TestSplitPromptGoalHeuristics(t *testing.T) {
	muscle := fullProfile()
	prompt := NewPromptBuilder(muscle).BuildSplitPrompt()
	assert.Contains(t, prompt.User, "push/pull/legs")

	loss := fullProfile()
	loss.Goal = model.GoalWeightLoss
	prompt = NewPromptBuilder(loss).BuildSplitPrompt()
	assert.Contains(t, prompt.User, "circuit")
}

func TestBaseNutritionPromptDietaryBans(t *testing.T) {
	profile := fullProfile()
	profile.DietaryPrefs = []string{model.DietVegetarian}
	prompt := NewPromptBuilder(profile).BuildBaseNutritionPrompt()

	for _, banned := range []string{"meat", "chicken", "fish", "seafood", "eggs", "beef", "pork", "salmon", "tuna", "shrimp"} {
		assert.Contains(t, prompt.User, banned)
	}

	// Eggitarian keeps eggs off the ban list.
	profile.DietaryPrefs = []string{model.DietEggitarian}
	prompt = NewPromptBuilder(profile).BuildBaseNutritionPrompt()
	assert.NotContains(t, prompt.User, "seafood, eggs")
	assert.Contains(t, prompt.User, "salmon")
}

func TestBaseNutritionPromptMacroTargets(t *testing.T) {
	profile := fullProfile()
	targets := ComputeTargets(profile)
	prompt := NewPromptBuilder(profile).BuildBaseNutritionPrompt()

	assert.Contains(t, prompt.User, fmt.Sprintf("Calories: %.0f kcal", targets.Calories))
	assert.Contains(t, prompt.User, fmt.Sprintf("Protein: %.0f g", targets.ProteinG))
}

func TestMealNamingTable(t *testing.T) {
	tests := []struct {
		count int
		names []string
	}{
		{1, []string{"OMAD"}},
		{2, []string{"First Meal", "Second Meal"}},
		{3, []string{"Breakfast", "Lunch", "Dinner"}},
		{4, []string{"Breakfast", "Lunch", "Afternoon Snack", "Dinner"}},
		{8, []string{"Breakfast", "Morning Snack", "Lunch", "Afternoon Snack", "Pre-Workout", "Post-Workout", "Dinner", "Before-Bed"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d meals", tt.count), func(t *testing.T) {
			assert.Equal(t, tt.names, mealNames(tt.count))
			assert.Len(t, mealNames(tt.count), tt.count)
		})
	}
	assert.Len(t, mealNames(5), 5)
	assert.Len(t, mealNames(6), 6)
	assert.Len(t, mealNames(7), 7)
}

func TestNutritionAdjustPromptDeltaRules(t *testing.T) {
	profile := fullProfile()
	base := &model.BaseNutrition{Calories: 3000, Protein: 176, MealsPerDay: 4, HydrationL: 2.5}
	splitDay := &model.SplitDay{Rest: true, Focus: []string{"Rest", "Recovery"}, Intensity: model.IntensityRest}

	prompt := NewPromptBuilder(profile).BuildNutritionAdjustPrompt("sunday", splitDay, base)
	assert.Contains(t, prompt.User, "rest: carbs -15%, hydration -0.3 L")
	assert.Contains(t, prompt.User, "high: carbs +10%, protein +5%, hydration +0.5 L")
	assert.Contains(t, prompt.User, "low: carbs -8%")
	assert.Contains(t, prompt.User, "Fats stay unchanged")
}

func TestDayWorkoutPromptConstraints(t *testing.T) {
	profile := fullProfile()
	profile.AvoidExercises = []string{"barbell squat"}
	profile.Equipment = []string{"dumbbells", "bands"}
	splitDay := &model.SplitDay{Focus: []string{"Legs", "Core"}, Intensity: model.IntensityHigh}

	prompt := NewPromptBuilder(profile).BuildDayWorkoutPrompt("thursday", splitDay)
	assert.Contains(t, prompt.User, "barbell squat")
	assert.Contains(t, prompt.User, "dumbbells, bands")
	assert.Contains(t, prompt.User, `"Warm-up"`)
	assert.Contains(t, prompt.User, `"Cool-down"`)
}

func TestSupplementsPromptAddOnInstruction(t *testing.T) {
	profile := fullProfile()
	profile.Supplements = []string{"creatine"}
	split := model.WorkoutSplit{"monday": model.RestSplitDay()}

	prompt := NewPromptBuilder(profile).BuildSupplementsPrompt(split)
	assert.Contains(t, prompt.User, "Recommend 2-4 add-on supplements the user does NOT already take")
	assert.Contains(t, prompt.User, "creatine")
	assert.Contains(t, prompt.User, "recommendedAddOns")
}

func TestNutritionVerifyPromptThresholds(t *testing.T) {
	profile := fullProfile()
	nutrition := &model.DayNutrition{TotalKcal: 3000, ProteinG: 170}
	estimate := MealsEstimate{TotalKcal: 2950, TotalProtein: 168}

	prompt := NewPromptBuilder(profile).BuildNutritionVerifyPrompt("monday", nutrition, estimate)
	assert.Contains(t, prompt.User, "> 200 kcal")
	assert.Contains(t, prompt.User, "> 20 g protein")
	assert.Contains(t, prompt.User, "calculated calories: 2950")
	assert.Contains(t, prompt.System, "Report ERRORS ONLY")
}

func TestVerifierPromptsShareErrorsOnlyFraming(t *testing.T) {
	profile := fullProfile()
	builder := NewPromptBuilder(profile)

	workout := builder.BuildWorkoutVerifyPrompt("monday", model.RestSplitDay(), &model.DayWorkout{})
	supplements := builder.BuildSupplementsVerifyPrompt(&model.SupplementsData{})
	assert.Equal(t, workout.System, supplements.System)
	assert.Contains(t, workout.System, "Report ERRORS ONLY")
}

func TestRedoPromptsCarryReason(t *testing.T) {
	profile := fullProfile()
	builder := NewPromptBuilder(profile)
	days := model.JSONMap{"monday": map[string]interface{}{}}

	workout := builder.BuildWorkoutRedoPrompt(days, "knees hurt on lunges")
	assert.Contains(t, workout.User, "knees hurt on lunges")
	assert.Contains(t, workout.User, "Keep rest days as rest days")

	nutrition := builder.BuildNutritionRedoPrompt(days, "too much rice")
	assert.Contains(t, nutrition.User, "too much rice")
	assert.Contains(t, nutrition.User, "BANNED foods")
}

func TestProfileSummaryOmitsMissingFields(t *testing.T) {
	profile := &model.ProfileSnapshot{
		Goal:         model.GoalGeneralFitness,
		TrainingDays: 3,
	}
	summary := NewPromptBuilder(profile).profileSummary()
	assert.Contains(t, summary, "bodyweight only")
	assert.NotContains(t, summary, "Injuries")
	assert.NotContains(t, summary, "Age")
	assert.False(t, strings.Contains(summary, "Special request"))
}

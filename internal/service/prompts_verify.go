package service

import (
	"fmt"
	"strings"

	"github.com/lakshayybhati/liftor-worker/internal/model"
)

// Verifier prompts are deliberately narrow: they report errors only and
// never rewrite content. Numeric fixes happen deterministically in the
// orchestrator, not in the model.

const verifierRules = `You are a strict reviewer. Report ERRORS ONLY.
Do not suggest improvements, do not rewrite the plan, do not praise it.
Respond with a single JSON object and nothing else, no Markdown fences.`

// VerifyResult is the shared verifier reply shape.
type VerifyResult struct {
	IsValid            bool     `json:"isValid"`
	Errors             []string `json:"errors"`
	CalculatedCalories *float64 `json:"calculatedCalories,omitempty"`
	CalculatedProtein  *float64 `json:"calculatedProtein,omitempty"`
}

// BuildWorkoutVerifyPrompt checks one day's workout against the split and
// the user's constraints.
func (b *PromptBuilder) BuildWorkoutVerifyPrompt(day string, splitDay *model.SplitDay, workout *model.DayWorkout) Prompt {
	user := fmt.Sprintf(`Check this %s workout for errors.

Expected focus: %s
Expected intensity: %s
Exercises the user must avoid: %s
Injuries: %s

Fail the day ONLY for: a banned or injury-conflicting exercise, a missing
Warm-up/Main/Cool-down block, sets outside 1-10, or a focus that
contradicts the split.

Workout:
%s

Expected JSON shape:
{ "isValid": true, "errors": [] }`,
		day,
		strings.Join(splitDay.Focus, ", "),
		splitDay.Intensity,
		orNone(b.profile.AvoidExercises),
		orNone(b.profile.Injuries),
		mustJSON(workout),
	)

	return Prompt{System: verifierRules, User: user}
}

// BuildNutritionVerifyPrompt checks one day's nutrition. The food
// estimator's computed figures are supplied so the verifier compares
// against them instead of re-deriving nutrition facts.
func (b *PromptBuilder) BuildNutritionVerifyPrompt(day string, nutrition *model.DayNutrition, estimate MealsEstimate) Prompt {
	banned := b.bannedFoods()
	bannedLine := "none"
	if len(banned) > 0 {
		bannedLine = strings.Join(banned, ", ")
	}

	user := fmt.Sprintf(`Check this %s nutrition plan for errors.

Precomputed from a food nutrition table:
- calculated calories: %.0f kcal
- calculated protein: %.0f g

Stated by the plan:
- total_kcal: %.0f
- protein_g: %.0f

BANNED foods: %s

Fail the day ONLY if:
- a banned food appears in any meal, or
- |stated - calculated| > 200 kcal, or
- |stated - calculated| > 20 g protein.

Echo the calculated figures back in calculatedCalories and calculatedProtein.

Plan:
%s

Expected JSON shape:
{ "isValid": true, "errors": [], "calculatedCalories": %.0f, "calculatedProtein": %.0f }`,
		day,
		estimate.TotalKcal, estimate.TotalProtein,
		nutrition.TotalKcal, nutrition.ProteinG,
		bannedLine,
		mustJSON(nutrition),
		estimate.TotalKcal, estimate.TotalProtein,
	)

	return Prompt{System: verifierRules, User: user}
}

// BuildSupplementsVerifyPrompt checks the weekly supplements output.
func (b *PromptBuilder) BuildSupplementsVerifyPrompt(supplements *model.SupplementsData) Prompt {
	user := fmt.Sprintf(`Check this weekly supplements and recovery plan for errors.

The user currently takes: %s

Fail ONLY for: a recommended add-on the user already takes, fewer than 2 or
more than 4 add-ons, a day missing mobility/sleep/supplements arrays, or
medically unsound pairings.

Plan:
%s

Expected JSON shape:
{ "isValid": true, "errors": [] }`,
		orNone(b.profile.Supplements),
		mustJSON(supplements),
	)

	return Prompt{System: verifierRules, User: user}
}

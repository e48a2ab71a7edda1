package service

import (
	"fmt"

	"github.com/lakshayybhati/liftor-worker/internal/model"
)

// Redo prompts mutate an existing plan in place of the split-first
// pipeline. Each takes the previous plan's relevant slice plus the user's
// free-text reason.

// BuildWorkoutRedoPrompt rewrites the week's workouts per the user's
// complaint, keeping everything else recognizable.
func (b *PromptBuilder) BuildWorkoutRedoPrompt(previousDays model.JSONMap, reason string) Prompt {
	system := `You revise existing workout plans based on user feedback.
` + jsonOnlyRules

	user := fmt.Sprintf(`The user asked to redo the workouts in their weekly plan.

User's reason: %q

%s
Current plan days (workout portion is what you change):
%s

Rules:
- Change workouts only as far as the reason requires; keep days the user
  did not complain about close to the original.
- Keep rest days as rest days.
- Keep the Warm-up/Main/Cool-down block structure.

Expected JSON shape (one workout per weekday key):
{
  "monday": {
    "focus": ["Chest", "Triceps"],
    "blocks": [
      { "name": "Warm-up", "items": [ { "exercise": "Arm circles", "sets": 2, "reps": "30s" } ] },
      { "name": "Main", "items": [ { "exercise": "Incline dumbbell press", "sets": 4, "reps": "8-10", "rir": 2 } ] },
      { "name": "Cool-down", "items": [ { "exercise": "Chest stretch", "sets": 1, "reps": "60s" } ] }
    ]
  },
  "tuesday": { ... },
  "wednesday": { ... },
  "thursday": { ... },
  "friday": { ... },
  "saturday": { ... },
  "sunday": { ... }
}`,
		reason,
		b.profileSummary(),
		mustJSON(previousDays),
	)

	return Prompt{System: system, User: user}
}

// BuildNutritionRedoPrompt rewrites the week's nutrition per the user's
// complaint.
func (b *PromptBuilder) BuildNutritionRedoPrompt(previousDays model.JSONMap, reason string) Prompt {
	system := `You revise existing nutrition plans based on user feedback.
` + jsonOnlyRules

	banned := orNone(b.bannedFoods())

	user := fmt.Sprintf(`The user asked to redo the nutrition in their weekly plan.

User's reason: %q

%s
BANNED foods (must never appear): %s
Daily targets stay at %.0f kcal and %.0f g protein.

Current plan days (nutrition portion is what you change):
%s

Rules:
- Change nutrition only as far as the reason requires.
- Keep meal count and hydration targets.

Expected JSON shape (one nutrition object per weekday key):
{
  "monday": {
    "total_kcal": %.0f,
    "protein_g": %.0f,
    "meals_per_day": %d,
    "meals": [ { "name": "Breakfast", "items": [ { "food": "oats", "quantity": "80g" } ] } ],
    "hydration_l": 2.5
  },
  "tuesday": { ... },
  "wednesday": { ... },
  "thursday": { ... },
  "friday": { ... },
  "saturday": { ... },
  "sunday": { ... }
}`,
		reason,
		b.profileSummary(),
		banned,
		b.targets.Calories, b.targets.ProteinG,
		mustJSON(previousDays),
		b.targets.Calories, b.targets.ProteinG,
		b.profile.MealsPerDay(),
	)

	return Prompt{System: system, User: user}
}

// BuildRedoReasonsPrompt rewrites the per-day blurbs after a redo.
func (b *PromptBuilder) BuildRedoReasonsPrompt(days model.JSONMap, reason string) Prompt {
	system := `You write short, specific motivational notes for training plans.
` + jsonOnlyRules

	user := fmt.Sprintf(`This weekly plan was just revised because the user said: %q

Write one fresh 1-2 sentence "reason" per day reflecting the revised plan.

Revised days:
%s

Expected JSON shape:
{
  "monday": "...",
  "tuesday": "...",
  "wednesday": "...",
  "thursday": "...",
  "friday": "...",
  "saturday": "...",
  "sunday": "..."
}`,
		reason,
		mustJSON(days),
	)

	return Prompt{System: system, User: user}
}

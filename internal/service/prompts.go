package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lakshayybhati/liftor-worker/internal/model"
)

// Prompt is a system+user pair for one LLM call.
type Prompt struct {
	System string
	User   string
}

// PromptBuilder renders the prompts for every pipeline stage from the
// profile snapshot and upstream stage outputs. It is the contract surface
// against the model: constraints, macro targets, and the exact JSON shape
// the recovery parser repairs toward are all spelled out here.
type PromptBuilder struct {
	profile *model.ProfileSnapshot
	targets NutritionTargets
}

// NewPromptBuilder creates a prompt builder for one job's profile.
func NewPromptBuilder(profile *model.ProfileSnapshot) *PromptBuilder {
	return &PromptBuilder{
		profile: profile,
		targets: ComputeTargets(profile),
	}
}

// Targets exposes the computed daily targets for the orchestrator's
// post-fix and verification steps.
func (b *PromptBuilder) Targets() NutritionTargets {
	return b.targets
}

// bannedFoods returns the food names the dietary base preference excludes.
func (b *PromptBuilder) bannedFoods() []string {
	switch b.profile.DietBase() {
	case model.DietVegetarian:
		return []string{"meat", "chicken", "fish", "seafood", "eggs", "beef", "pork", "salmon", "tuna", "shrimp"}
	case model.DietEggitarian:
		return []string{"meat", "chicken", "fish", "seafood", "beef", "pork", "salmon", "tuna", "shrimp"}
	default:
		return nil
	}
}

// mealNames returns the meal-naming guide entry for a given meal count.
func mealNames(count int) []string {
	switch count {
	case 1:
		return []string{"OMAD"}
	case 2:
		return []string{"First Meal", "Second Meal"}
	case 3:
		return []string{"Breakfast", "Lunch", "Dinner"}
	case 4:
		return []string{"Breakfast", "Lunch", "Afternoon Snack", "Dinner"}
	case 5:
		return []string{"Breakfast", "Morning Snack", "Lunch", "Afternoon Snack", "Dinner"}
	case 6:
		return []string{"Breakfast", "Morning Snack", "Lunch", "Afternoon Snack", "Dinner", "Evening Snack"}
	case 7:
		return []string{"Breakfast", "Morning Snack", "Lunch", "Afternoon Snack", "Pre-Workout", "Post-Workout", "Dinner"}
	case 8:
		return []string{"Breakfast", "Morning Snack", "Lunch", "Afternoon Snack", "Pre-Workout", "Post-Workout", "Dinner", "Before-Bed"}
	default:
		return []string{"Breakfast", "Lunch", "Dinner"}
	}
}

// profileSummary renders the constraint block shared by most prompts.
func (b *PromptBuilder) profileSummary() string {
	p := b.profile
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\n", p.Goal)
	fmt.Fprintf(&sb, "Training days per week: %d\n", p.TrainingDays)
	if len(p.Equipment) > 0 {
		fmt.Fprintf(&sb, "Available equipment: %s\n", strings.Join(p.Equipment, ", "))
	} else {
		sb.WriteString("Available equipment: bodyweight only\n")
	}
	if diet := p.DietBase(); diet != "" {
		fmt.Fprintf(&sb, "Dietary preference: %s\n", diet)
	}
	fmt.Fprintf(&sb, "Meals per day: %d\n", p.MealsPerDay())
	if p.Age != nil {
		fmt.Fprintf(&sb, "Age: %d\n", *p.Age)
	}
	if p.Sex != nil {
		fmt.Fprintf(&sb, "Sex: %s\n", *p.Sex)
	}
	if p.HeightCM != nil {
		fmt.Fprintf(&sb, "Height: %.0f cm\n", *p.HeightCM)
	}
	if p.WeightKG != nil {
		fmt.Fprintf(&sb, "Weight: %.1f kg\n", *p.WeightKG)
	}
	if p.ActivityLevel != nil {
		fmt.Fprintf(&sb, "Activity level: %s\n", *p.ActivityLevel)
	}
	if len(p.Injuries) > 0 {
		fmt.Fprintf(&sb, "Injuries: %s\n", strings.Join(p.Injuries, ", "))
	}
	if len(p.AvoidExercises) > 0 {
		fmt.Fprintf(&sb, "Exercises to avoid: %s\n", strings.Join(p.AvoidExercises, ", "))
	}
	if len(p.AvoidFoods) > 0 {
		fmt.Fprintf(&sb, "Foods to avoid: %s\n", strings.Join(p.AvoidFoods, ", "))
	}
	if len(p.Supplements) > 0 {
		fmt.Fprintf(&sb, "Current supplements: %s\n", strings.Join(p.Supplements, ", "))
	}
	if p.SpecialRequest != nil && *p.SpecialRequest != "" {
		fmt.Fprintf(&sb, "Special request: %s\n", *p.SpecialRequest)
	}
	if p.RegenRequest != nil && *p.RegenRequest != "" {
		fmt.Fprintf(&sb, "Plan regeneration request: %s\n", *p.RegenRequest)
	}
	return sb.String()
}

const jsonOnlyRules = `Respond with a single JSON object and nothing else.
Do NOT wrap the JSON in Markdown code fences.
Do NOT add any text before or after the JSON.
Every key shown in the expected shape must be present.`

// splitPairingGuide returns the goal-specific day pairing heuristics.
func splitPairingGuide(goal string) string {
	switch goal {
	case model.GoalMuscleGain:
		return `Favor push/pull/legs style pairings: Chest+Triceps, Back+Biceps, Legs+Core, Shoulders+Arms.
Spread high-intensity days so consecutive days never hit the same primary muscles.`
	case model.GoalWeightLoss:
		return `Favor full-body and circuit style days that keep overall energy expenditure high.
Mix in one or two dedicated cardio/conditioning days at moderate intensity.`
	case model.GoalEndurance:
		return `Favor cardio-dominant days (runs, cycling, intervals) with one or two full-body strength days for durability.`
	case model.GoalFlexibility:
		return `Favor mobility, yoga, and flexibility-focused days at low to moderate intensity with gentle full-body strength once or twice.`
	default:
		return `Balance full-body strength, cardio, and mobility days across the week at mostly moderate intensity.`
	}
}

// BuildSplitPrompt builds the Stage 0 prompt producing the weekly split.
func (b *PromptBuilder) BuildSplitPrompt() Prompt {
	system := `You are an expert strength and conditioning coach designing weekly training splits.
` + jsonOnlyRules

	user := fmt.Sprintf(`Design a 7-day workout split for this user.

%s
%s

Rules:
- Use EXACTLY %d training days; every other day is a rest day.
- The JSON object must contain all seven keys: monday, tuesday, wednesday, thursday, friday, saturday, sunday.
- intensity must be one of: "high", "moderate", "low", "rest".
- Rest days use {"rest": true, "focus": ["Rest", "Recovery"], "intensity": "rest"}.

Expected JSON shape:
{
  "monday": {
    "rest": false,
    "focus": ["Chest", "Triceps"],
    "intensity": "high",
    "primaryMuscles": ["chest", "triceps"],
    "secondaryMuscles": ["front delts"]
  },
  "tuesday": { "rest": true, "focus": ["Rest", "Recovery"], "intensity": "rest" },
  "wednesday": { ... },
  "thursday": { ... },
  "friday": { ... },
  "saturday": { ... },
  "sunday": { ... }
}`, b.profileSummary(), splitPairingGuide(b.profile.Goal), b.profile.TrainingDays)

	return Prompt{System: system, User: user}
}

// BuildBaseNutritionPrompt builds the Stage 1 prompt producing the base
// daily nutrition template.
func (b *PromptBuilder) BuildBaseNutritionPrompt() Prompt {
	system := `You are a sports nutritionist building daily meal templates.
` + jsonOnlyRules

	names := mealNames(b.profile.MealsPerDay())
	banned := b.bannedFoods()
	bannedLine := "none"
	if len(banned) > 0 {
		bannedLine = strings.Join(banned, ", ")
	}

	user := fmt.Sprintf(`Create the base daily nutrition plan for this user.

%s
Daily targets (computed, non-negotiable):
- Calories: %.0f kcal
- Protein: %.0f g

Dietary rules:
- BANNED foods (must never appear in any meal): %s
- Also avoid: %s

Use exactly %d meals per day named, in order: %s.
Hydration target: 2.5 liters minimum.

Expected JSON shape:
{
  "calories": %.0f,
  "protein": %.0f,
  "carbs": 250,
  "fats": 70,
  "mealsPerDay": %d,
  "hydrationLiters": 2.5,
  "meals": [
    {
      "name": "%s",
      "targetCalories": 600,
      "targetProtein": 40,
      "items": [
        { "food": "oats", "quantity": "80g" },
        { "food": "greek yogurt", "quantity": "200g" }
      ]
    }
  ]
}`,
		b.profileSummary(),
		b.targets.Calories, b.targets.ProteinG,
		bannedLine,
		orNone(b.profile.AvoidFoods),
		b.profile.MealsPerDay(), strings.Join(names, ", "),
		b.targets.Calories, b.targets.ProteinG,
		b.profile.MealsPerDay(),
		names[0],
	)

	return Prompt{System: system, User: user}
}

// BuildDayWorkoutPrompt builds the Stage 2 per-day workout prompt. Rest
// days short-circuit to a deterministic mobility block and never reach the
// LLM; callers only invoke this for training days.
func (b *PromptBuilder) BuildDayWorkoutPrompt(day string, splitDay *model.SplitDay) Prompt {
	system := `You are an expert personal trainer writing a single day's workout.
` + jsonOnlyRules

	equipment := "bodyweight only"
	if len(b.profile.Equipment) > 0 {
		equipment = strings.Join(b.profile.Equipment, ", ")
	}

	user := fmt.Sprintf(`Write the full workout for %s.

%s
Day focus: %s
Day intensity: %s
Available equipment: %s
Exercises to avoid: %s

Rules:
- Exactly three blocks named "Warm-up", "Main", and "Cool-down".
- Sets between 1 and 10; reps as a string prescription (e.g. "8-12").
- rir (reps in reserve) between 0 and 5 when given.
- Respect the avoid list and any injuries strictly.

Expected JSON shape:
{
  "focus": %s,
  "blocks": [
    {
      "name": "Warm-up",
      "items": [
        { "exercise": "Arm circles", "sets": 2, "reps": "30s", "notes": "slow and controlled" }
      ]
    },
    {
      "name": "Main",
      "items": [
        { "exercise": "Barbell bench press", "sets": 4, "reps": "8-10", "rir": 2 }
      ]
    },
    {
      "name": "Cool-down",
      "items": [
        { "exercise": "Chest doorway stretch", "sets": 1, "reps": "60s" }
      ]
    }
  ]
}`,
		day,
		b.profileSummary(),
		strings.Join(splitDay.Focus, ", "),
		splitDay.Intensity,
		equipment,
		orNone(b.profile.AvoidExercises),
		mustJSON(splitDay.Focus),
	)

	return Prompt{System: system, User: user}
}

// intensityDeltaGuide spells out the deterministic adjustment rules the
// nutrition-adjustment stage applies per intensity level.
const intensityDeltaGuide = `Adjustment rules by day intensity:
- rest: carbs -15%%, hydration -0.3 L
- high: carbs +10%%, protein +5%%, hydration +0.5 L
- low: carbs -8%%
- moderate: no changes
Fats stay unchanged in all cases.`

// BuildNutritionAdjustPrompt builds the Stage 2 per-day nutrition
// adjustment prompt over the base template.
func (b *PromptBuilder) BuildNutritionAdjustPrompt(day string, splitDay *model.SplitDay, base *model.BaseNutrition) Prompt {
	system := `You are a sports nutritionist adjusting a base meal plan for one specific day.
` + jsonOnlyRules

	baseJSON := mustJSON(base)
	banned := b.bannedFoods()
	bannedLine := "none"
	if len(banned) > 0 {
		bannedLine = strings.Join(banned, ", ")
	}

	user := fmt.Sprintf(`Adjust the base nutrition plan below for %s.

Day intensity: %s
Day focus: %s

`+intensityDeltaGuide+`

BANNED foods (must never appear): %s

Base plan:
%s

List every change you made in "adjustments" as short human-readable strings.

Expected JSON shape:
{
  "total_kcal": %.0f,
  "protein_g": %.0f,
  "carbs_g": 240,
  "fats_g": 70,
  "meals_per_day": %d,
  "meals": [
    {
      "name": "Breakfast",
      "items": [ { "food": "oats", "quantity": "80g" } ]
    }
  ],
  "hydration_l": 2.5,
  "adjustments": ["Reduced carbs 15%% for rest day"]
}`,
		day,
		splitDay.Intensity,
		strings.Join(splitDay.Focus, ", "),
		bannedLine,
		baseJSON,
		base.Calories, base.Protein, base.MealsPerDay,
	)

	return Prompt{System: system, User: user}
}

// supplementGuide returns the goal-keyed essential/optional supplement
// lists rendered into the supplements prompt.
func supplementGuide(goal string) (essential, optional []string) {
	switch goal {
	case model.GoalMuscleGain:
		return []string{"creatine monohydrate 3-5g daily", "whey protein as needed to hit protein target"},
			[]string{"vitamin D3", "omega-3 fish oil", "magnesium glycinate"}
	case model.GoalWeightLoss:
		return []string{"whey or plant protein to preserve lean mass"},
			[]string{"caffeine pre-workout", "vitamin D3", "omega-3 fish oil"}
	case model.GoalEndurance:
		return []string{"electrolytes around long sessions"},
			[]string{"beta-alanine", "iron (if deficient)", "omega-3 fish oil"}
	default:
		return []string{"vitamin D3"},
			[]string{"magnesium glycinate", "omega-3 fish oil", "whey protein"}
	}
}

// BuildSupplementsPrompt builds the Stage 2 weekly supplements prompt.
func (b *PromptBuilder) BuildSupplementsPrompt(split model.WorkoutSplit) Prompt {
	system := `You are a sports medicine advisor planning weekly recovery and supplementation.
` + jsonOnlyRules

	essential, optional := supplementGuide(b.profile.Goal)
	current := orNone(b.profile.Supplements)

	ageBracket := "adult"
	if b.profile.Age != nil {
		switch {
		case *b.profile.Age < 25:
			ageBracket = "under 25: prioritize sleep and whole foods before any supplement"
		case *b.profile.Age >= 50:
			ageBracket = "50+: consider vitamin D, B12, and joint support; check interactions with medication"
		default:
			ageBracket = "25-49: standard adult guidance applies"
		}
	}

	user := fmt.Sprintf(`Plan recovery and supplements for every day of this training week.

%s
Weekly split:
%s

Goal-keyed guidance:
- Essential for this goal: %s
- Optional for this goal: %s
- Age bracket guidance: %s

The user currently takes: %s
Recommend 2-4 add-on supplements the user does NOT already take, in "recommendedAddOns".

Expected JSON shape:
{
  "days": {
    "monday": {
      "mobility": ["10 min hip opener flow"],
      "sleep": ["In bed by 10:30pm, 7.5h minimum"],
      "supplements": ["Creatine 5g with breakfast"]
    },
    "tuesday": { ... },
    "wednesday": { ... },
    "thursday": { ... },
    "friday": { ... },
    "saturday": { ... },
    "sunday": { ... }
  },
  "recommendedAddOns": ["Creatine monohydrate 5g daily", "Vitamin D3 2000 IU"]
}`,
		b.profileSummary(),
		mustJSON(split),
		strings.Join(essential, "; "),
		strings.Join(optional, "; "),
		ageBracket,
		current,
	)

	return Prompt{System: system, User: user}
}

// BuildReasonsPrompt builds the Stage 4 prompt producing one short
// motivating blurb per day.
func (b *PromptBuilder) BuildReasonsPrompt(split model.WorkoutSplit, deltas map[string][]string, supplements *model.SupplementsData) Prompt {
	system := `You write short, specific motivational notes for training plans.
` + jsonOnlyRules

	user := fmt.Sprintf(`Write one 1-2 sentence "reason" per day explaining why that day looks the way it does.
Reference the day's training focus, nutrition adjustments, or recovery emphasis. Keep each under 40 words.

Weekly split:
%s

Nutrition adjustments per day:
%s

Recovery data:
%s

Expected JSON shape:
{
  "monday": "Heavy chest day fuels your muscle-gain goal; the extra carbs today power those pressing sets.",
  "tuesday": "...",
  "wednesday": "...",
  "thursday": "...",
  "friday": "...",
  "saturday": "...",
  "sunday": "..."
}`,
		mustJSON(split),
		mustJSON(deltas),
		mustJSON(supplements),
	)

	return Prompt{System: system, User: user}
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// mustJSON renders v for embedding in a prompt; prompts are best-effort so
// a marshal failure degrades to an empty object.
func mustJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

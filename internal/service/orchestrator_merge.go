package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lakshayybhati/liftor-worker/internal/model"
)

// merge assembles the final plan from the accumulated stage artifacts,
// filling defaults for any slot a failed fan-out task left empty, then
// applies the deterministic post-fixes.
func (o *Orchestrator) merge(builder *PromptBuilder, cp *model.Checkpoint) *model.GeneratedPlan {
	split := *cp.WorkoutSplit
	targets := builder.Targets()
	profile := builder.profile

	days := make(map[string]*model.PlanDay, len(model.Weekdays))
	for _, day := range model.Weekdays {
		splitDay := split[day]
		if splitDay == nil {
			splitDay = model.RestSplitDay()
		}

		workout := cp.DailyWorkouts[day]
		if workout == nil {
			workout = defaultWorkout(splitDay)
		}

		nutrition := cp.DailyNutrition[day]
		if nutrition == nil {
			nutrition = nutritionFromBase(cp.BaseNutrition, targets, profile)
		}

		recovery := recoveryForDay(cp.SupplementsData, day, profile)

		days[day] = &model.PlanDay{
			Workout:   workout,
			Nutrition: nutrition,
			Recovery:  recovery,
			Reason:    cp.DailyReasons[day],
		}
	}

	// Weekly add-ons fan out into every day's supplement card, deduplicated
	// by name.
	if cp.SupplementsData != nil {
		mergeAddOns(days, cp.SupplementsData.RecommendedAddOns)
	}

	for day, planDay := range days {
		postFixDay(planDay, split[day], targets, profile)
	}

	return &model.GeneratedPlan{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Days:        days,
	}
}

// postFixDay applies the deterministic corrections every day receives
// regardless of what the model produced.
func postFixDay(planDay *model.PlanDay, splitDay *model.SplitDay, targets NutritionTargets, profile *model.ProfileSnapshot) {
	n := planDay.Nutrition

	lo := targets.Calories - 100
	if lo < 1000 {
		lo = 1000
	}
	hi := targets.Calories + 100
	if hi > 6000 {
		hi = 6000
	}
	n.TotalKcal = clampFloat(n.TotalKcal, lo, hi)

	if n.ProteinG <= 0 {
		n.ProteinG = targets.ProteinG
	}
	n.MealsPerDay = profile.MealsPerDay()
	if n.HydrationL <= 0 {
		n.HydrationL = 2.5
	}

	if planDay.Recovery == nil {
		planDay.Recovery = fallbackRecoveryDay(splitDay, profile)
	}
	r := planDay.Recovery
	if r.Mobility == nil {
		r.Mobility = []string{}
	}
	if r.Sleep == nil {
		r.Sleep = []string{}
	}
	if r.Supplements == nil {
		r.Supplements = []string{}
	}
	if r.SupplementCard == nil {
		r.SupplementCard = &model.SupplementCard{
			Current: append([]string{}, profile.Supplements...),
			AddOns:  []string{},
		}
	}

	if planDay.Reason == "" {
		if splitDay != nil && !splitDay.Rest {
			planDay.Reason = "Focused " + joinFocus(splitDay.Focus) + " work keeps you progressing toward your goal."
		} else {
			planDay.Reason = "Recovery day: easy movement, hydration, and sleep consolidate the week's training."
		}
	}
}

// mergeAddOns copies the weekly recommended add-ons into every day's
// supplement card, skipping duplicates case-insensitively by name.
func mergeAddOns(days map[string]*model.PlanDay, addOns []string) {
	for _, planDay := range days {
		if planDay.Recovery == nil || planDay.Recovery.SupplementCard == nil {
			continue
		}
		card := planDay.Recovery.SupplementCard
		seen := make(map[string]bool, len(card.AddOns))
		for _, existing := range card.AddOns {
			seen[strings.ToLower(existing)] = true
		}
		for _, addOn := range addOns {
			key := strings.ToLower(addOn)
			if !seen[key] {
				card.AddOns = append(card.AddOns, addOn)
				seen[key] = true
			}
		}
	}
}

// restDayWorkout is the deterministic mobility block used for rest days
// and as the default for a failed workout slot on a rest day.
func restDayWorkout() *model.DayWorkout {
	return &model.DayWorkout{
		Focus: []string{"Rest", "Recovery"},
		Blocks: []model.WorkoutBlock{
			{
				Name: "Warm-up",
				Items: []model.WorkoutItem{
					{Exercise: "Easy walk", Sets: 1, Reps: "10 min"},
				},
			},
			{
				Name: "Main",
				Items: []model.WorkoutItem{
					{Exercise: "Full-body mobility flow", Sets: 1, Reps: "15 min"},
					{Exercise: "Foam rolling", Sets: 1, Reps: "10 min"},
				},
			},
			{
				Name: "Cool-down",
				Items: []model.WorkoutItem{
					{Exercise: "Deep breathing", Sets: 1, Reps: "5 min"},
				},
			},
		},
	}
}

// defaultWorkout stands in for a failed training-day slot: a minimal
// session built from the split's focus tags.
func defaultWorkout(splitDay *model.SplitDay) *model.DayWorkout {
	if splitDay.Rest {
		return restDayWorkout()
	}
	focus := joinFocus(splitDay.Focus)
	return &model.DayWorkout{
		Focus: splitDay.Focus,
		Blocks: []model.WorkoutBlock{
			{
				Name: "Warm-up",
				Items: []model.WorkoutItem{
					{Exercise: "Dynamic full-body warm-up", Sets: 1, Reps: "8 min"},
				},
			},
			{
				Name: "Main",
				Items: []model.WorkoutItem{
					{Exercise: focus + " compound movement", Sets: 4, Reps: "8-12"},
					{Exercise: focus + " accessory movement", Sets: 3, Reps: "10-15"},
				},
			},
			{
				Name: "Cool-down",
				Items: []model.WorkoutItem{
					{Exercise: "Static stretching", Sets: 1, Reps: "5 min"},
				},
			},
		},
	}
}

// nutritionFromBase fills a missing day from the base template, or from
// bare targets when even the base stage artifact is unavailable.
func nutritionFromBase(base *model.BaseNutrition, targets NutritionTargets, profile *model.ProfileSnapshot) *model.DayNutrition {
	if base == nil {
		return &model.DayNutrition{
			TotalKcal:   targets.Calories,
			ProteinG:    targets.ProteinG,
			MealsPerDay: profile.MealsPerDay(),
			Meals:       []model.Meal{},
			HydrationL:  2.5,
		}
	}
	meals := make([]model.Meal, 0, len(base.Meals))
	for _, template := range base.Meals {
		meals = append(meals, model.Meal{
			Name:  template.Name,
			Items: append([]model.MealItem{}, template.Items...),
		})
	}
	carbs := base.Carbs
	fats := base.Fats
	return &model.DayNutrition{
		TotalKcal:   base.Calories,
		ProteinG:    base.Protein,
		CarbsG:      &carbs,
		FatsG:       &fats,
		MealsPerDay: base.MealsPerDay,
		Meals:       meals,
		HydrationL:  base.HydrationL,
	}
}

// recoveryForDay builds the day's recovery block from the supplements
// stage output, or deterministically when that slot is missing.
func recoveryForDay(supplements *model.SupplementsData, day string, profile *model.ProfileSnapshot) *model.DayRecovery {
	if supplements == nil || supplements.Days[day] == nil {
		return nil // postFixDay fills the fallback with the split in hand
	}
	data := supplements.Days[day]
	return &model.DayRecovery{
		Mobility:    data.Mobility,
		Sleep:       data.Sleep,
		Supplements: data.Supplements,
		SupplementCard: &model.SupplementCard{
			Current: append([]string{}, profile.Supplements...),
			AddOns:  []string{},
		},
	}
}

// fallbackSupplements synthesizes the whole supplements artifact when the
// weekly call fails: per-day recovery keyed off focus and intensity plus
// two goal-keyed add-ons the user does not already take.
func fallbackSupplements(profile *model.ProfileSnapshot, split model.WorkoutSplit) *model.SupplementsData {
	days := make(map[string]*model.DailyRecoveryData, len(model.Weekdays))
	for _, day := range model.Weekdays {
		splitDay := split[day]
		if splitDay == nil {
			splitDay = model.RestSplitDay()
		}
		days[day] = fallbackDailyRecovery(splitDay, profile)
	}

	return &model.SupplementsData{
		Days:              days,
		RecommendedAddOns: fallbackAddOns(profile),
	}
}

func fallbackDailyRecovery(splitDay *model.SplitDay, profile *model.ProfileSnapshot) *model.DailyRecoveryData {
	recovery := &model.DailyRecoveryData{
		Sleep: []string{"7-9 hours; keep a consistent bed time"},
	}
	if splitDay.Rest {
		recovery.Mobility = []string{"20 min gentle full-body stretching", "10 min easy walk"}
	} else {
		focus := strings.ToLower(joinFocus(splitDay.Focus))
		recovery.Mobility = []string{"10 min mobility work for " + focus}
		if splitDay.Intensity == model.IntensityHigh {
			recovery.Sleep = append(recovery.Sleep, "Add 30 min sleep after high-intensity days")
		}
	}
	for _, supplement := range profile.Supplements {
		recovery.Supplements = append(recovery.Supplements, supplement+" at your usual time")
	}
	return recovery
}

// fallbackAddOns returns two goal-keyed recommendations filtered against
// what the user already takes.
func fallbackAddOns(profile *model.ProfileSnapshot) []string {
	var candidates []string
	switch profile.Goal {
	case model.GoalMuscleGain:
		candidates = []string{"Creatine monohydrate 5g daily", "Whey protein 1 scoop post-workout", "Vitamin D3 2000 IU"}
	case model.GoalWeightLoss:
		candidates = []string{"Whey protein 1 scoop daily", "Omega-3 fish oil 1g", "Vitamin D3 2000 IU"}
	case model.GoalEndurance:
		candidates = []string{"Electrolyte mix around long sessions", "Omega-3 fish oil 1g", "Magnesium glycinate 300mg"}
	default:
		candidates = []string{"Vitamin D3 2000 IU", "Magnesium glycinate 300mg", "Omega-3 fish oil 1g"}
	}

	current := make(map[string]bool, len(profile.Supplements))
	for _, supplement := range profile.Supplements {
		current[strings.ToLower(supplement)] = true
	}

	addOns := make([]string, 0, 2)
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate)
		taken := false
		for existing := range current {
			if strings.Contains(lower, existing) || strings.Contains(existing, firstWord(lower)) {
				taken = true
				break
			}
		}
		if !taken {
			addOns = append(addOns, candidate)
		}
		if len(addOns) == 2 {
			break
		}
	}
	return addOns
}

// fallbackRecoveryDay builds a full DayRecovery when the supplements
// artifact had nothing for the day.
func fallbackRecoveryDay(splitDay *model.SplitDay, profile *model.ProfileSnapshot) *model.DayRecovery {
	if splitDay == nil {
		splitDay = model.RestSplitDay()
	}
	data := fallbackDailyRecovery(splitDay, profile)
	return &model.DayRecovery{
		Mobility:    data.Mobility,
		Sleep:       data.Sleep,
		Supplements: data.Supplements,
		SupplementCard: &model.SupplementCard{
			Current: append([]string{}, profile.Supplements...),
			AddOns:  []string{},
		},
	}
}

func joinFocus(focus []string) string {
	if len(focus) == 0 {
		return "full-body"
	}
	return strings.Join(focus, " & ")
}

func firstWord(s string) string {
	if idx := strings.IndexByte(s, ' '); idx > 0 {
		return s[:idx]
	}
	return s
}

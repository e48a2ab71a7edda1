package service

import (
	"math"

	"github.com/lakshayybhati/liftor-worker/internal/model"
)

// activityMultipliers maps activity level strings to their TDEE multiplier.
var activityMultipliers = map[string]float64{
	"sedentary":  1.2,
	"lightly":    1.375,
	"moderately": 1.55,
	"very":       1.725,
	"extra":      1.9,
}

const (
	defaultBMR                = 2000
	defaultActivityMultiplier = 1.55
	proteinPerKgMuscleGain    = 2.2
	proteinPerKgDefault       = 1.8
)

// NutritionTargets are the deterministic daily targets the pipeline feeds
// into prompts and post-fixes.
type NutritionTargets struct {
	BMR      float64
	TDEE     float64
	Calories float64
	ProteinG float64
}

// ComputeBMR uses Mifflin-St Jeor when sex, height, weight, and age are all
// present, otherwise a 2000 kcal default.
func ComputeBMR(p *model.ProfileSnapshot) float64 {
	if p.Sex == nil || p.HeightCM == nil || p.WeightKG == nil || p.Age == nil {
		return defaultBMR
	}
	bmr := 10**p.WeightKG + 6.25**p.HeightCM - 5*float64(*p.Age)
	if *p.Sex == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}
	return bmr
}

// ComputeTDEE multiplies BMR by the activity multiplier, defaulting to
// moderately active when the level is missing or unknown.
func ComputeTDEE(p *model.ProfileSnapshot) float64 {
	bmr := ComputeBMR(p)
	mult := defaultActivityMultiplier
	if p.ActivityLevel != nil {
		if m, ok := activityMultipliers[*p.ActivityLevel]; ok {
			mult = m
		}
	}
	return bmr * mult
}

// ComputeCalorieTarget prefers the user's explicit target, otherwise TDEE
// adjusted by goal.
func ComputeCalorieTarget(p *model.ProfileSnapshot) float64 {
	if p.CalorieTarget != nil && *p.CalorieTarget > 0 {
		return float64(*p.CalorieTarget)
	}
	tdee := ComputeTDEE(p)
	switch p.Goal {
	case model.GoalWeightLoss:
		return tdee * 0.85
	case model.GoalMuscleGain:
		return tdee * 1.10
	default:
		return tdee
	}
}

// ComputeProteinTarget scales with body weight (2.2 g/kg for muscle gain,
// 1.8 g/kg otherwise); when weight is unknown it falls back to 30% of
// calories at 4 kcal per gram.
func ComputeProteinTarget(p *model.ProfileSnapshot) float64 {
	if p.WeightKG != nil && *p.WeightKG > 0 {
		perKg := proteinPerKgDefault
		if p.Goal == model.GoalMuscleGain {
			perKg = proteinPerKgMuscleGain
		}
		return *p.WeightKG * perKg
	}
	return ComputeCalorieTarget(p) * 0.30 / 4
}

// ComputeTargets bundles the full set of daily targets, rounded to whole
// units for prompt rendering.
func ComputeTargets(p *model.ProfileSnapshot) NutritionTargets {
	return NutritionTargets{
		BMR:      math.Round(ComputeBMR(p)),
		TDEE:     math.Round(ComputeTDEE(p)),
		Calories: math.Round(ComputeCalorieTarget(p)),
		ProteinG: math.Round(ComputeProteinTarget(p)),
	}
}

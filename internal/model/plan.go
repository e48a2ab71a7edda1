package model

import (
	"encoding/json"
	"time"
)

// Intensity levels on a split day.
const (
	IntensityHigh     = "high"
	IntensityModerate = "moderate"
	IntensityLow      = "low"
	IntensityRest     = "rest"
)

// SplitDay is one weekday's slot in the workout split.
type SplitDay struct {
	Rest             bool     `json:"rest"`
	Focus            []string `json:"focus"`
	Intensity        string   `json:"intensity"`
	PrimaryMuscles   []string `json:"primaryMuscles,omitempty"`
	SecondaryMuscles []string `json:"secondaryMuscles,omitempty"`
}

// RestSplitDay returns the skeleton used to fill a weekday the split
// response left out.
func RestSplitDay() *SplitDay {
	return &SplitDay{
		Rest:      true,
		Focus:     []string{"Rest", "Recovery"},
		Intensity: IntensityRest,
	}
}

// WorkoutSplit maps every weekday to its slot. Exactly one entry per
// weekday; the non-rest count should match the profile's training days.
type WorkoutSplit map[string]*SplitDay

// TrainingDayCount returns the number of non-rest days in the split.
func (s WorkoutSplit) TrainingDayCount() int {
	count := 0
	for _, day := range s {
		if day != nil && !day.Rest {
			count++
		}
	}
	return count
}

// MealItem is one {food, quantity} pair in a meal.
type MealItem struct {
	Food     string `json:"food"`
	Quantity string `json:"quantity"`
}

// MealTemplate is a base-nutrition meal with its macro targets.
type MealTemplate struct {
	Name          string     `json:"name"`
	TargetKcal    float64    `json:"targetCalories"`
	TargetProtein float64    `json:"targetProtein"`
	Items         []MealItem `json:"items"`
}

// BaseNutrition holds the daily scalar targets and meal templates every
// day's nutrition is adjusted from.
type BaseNutrition struct {
	Calories    float64        `json:"calories"`
	Protein     float64        `json:"protein"`
	Carbs       float64        `json:"carbs"`
	Fats        float64        `json:"fats"`
	MealsPerDay int            `json:"mealsPerDay"`
	HydrationL  float64        `json:"hydrationLiters"`
	Meals       []MealTemplate `json:"meals"`
}

// WorkoutItem is one exercise prescription.
type WorkoutItem struct {
	Exercise string  `json:"exercise"`
	Sets     int     `json:"sets"`
	Reps     string  `json:"reps"`
	RIR      *int    `json:"rir,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// WorkoutBlock groups items under a label such as Warm-up, Main, or
// Cool-down.
type WorkoutBlock struct {
	Name  string        `json:"name"`
	Items []WorkoutItem `json:"items"`
}

// DayWorkout is one day's training prescription.
type DayWorkout struct {
	Focus  []string       `json:"focus"`
	Blocks []WorkoutBlock `json:"blocks"`
}

// Meal is a named list of food items in a day's nutrition.
type Meal struct {
	Name  string     `json:"name"`
	Items []MealItem `json:"items"`
}

// DayNutrition is one day's nutrition, adjusted from base.
type DayNutrition struct {
	TotalKcal    float64  `json:"total_kcal"`
	ProteinG     float64  `json:"protein_g"`
	CarbsG       *float64 `json:"carbs_g,omitempty"`
	FatsG        *float64 `json:"fats_g,omitempty"`
	MealsPerDay  int      `json:"meals_per_day"`
	Meals        []Meal   `json:"meals"`
	HydrationL   float64  `json:"hydration_l"`
	Adjustments  []string `json:"adjustments,omitempty"`
	CalculatedKcal    *float64 `json:"calculated_kcal,omitempty"`
	CalculatedProtein *float64 `json:"calculated_protein_g,omitempty"`
}

// SupplementCard splits a day's supplement guidance into what the user
// already takes and what is recommended on top.
type SupplementCard struct {
	Current []string `json:"current"`
	AddOns  []string `json:"addOns"`
}

// DayRecovery is one day's mobility, sleep, and supplement guidance.
type DayRecovery struct {
	Mobility       []string        `json:"mobility"`
	Sleep          []string        `json:"sleep"`
	Supplements    []string        `json:"supplements"`
	SupplementCard *SupplementCard `json:"supplementCard,omitempty"`
}

// DailyRecoveryData is the per-day slice of the supplements stage output.
type DailyRecoveryData struct {
	Mobility    []string `json:"mobility"`
	Sleep       []string `json:"sleep"`
	Supplements []string `json:"supplements"`
}

// SupplementsData is the weekly supplements stage output: per-day recovery
// plus the add-ons recommended once and fanned out into every day.
type SupplementsData struct {
	Days              map[string]*DailyRecoveryData `json:"days"`
	RecommendedAddOns []string                      `json:"recommendedAddOns"`
}

// PlanDay is the final merged record for one weekday.
type PlanDay struct {
	Workout   *DayWorkout   `json:"workout"`
	Nutrition *DayNutrition `json:"nutrition"`
	Recovery  *DayRecovery  `json:"recovery"`
	Reason    string        `json:"reason"`
}

// GeneratedPlan is the in-memory result of a completed pipeline run.
type GeneratedPlan struct {
	ID          string              `json:"id"`
	GeneratedAt string              `json:"generatedAt"`
	Days        map[string]*PlanDay `json:"days"`
}

// DaysMap renders the plan's days for the JSONB column on the plan row.
func (p *GeneratedPlan) DaysMap() (JSONMap, error) {
	data, err := json.Marshal(p.Days)
	if err != nil {
		return nil, err
	}
	var out JSONMap
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Plan record statuses.
const (
	PlanStatusPending    = "pending"
	PlanStatusGenerating = "generating"
	PlanStatusGenerated  = "generated"
)

// WeeklyBasePlan is the persisted seven-day plan record.
type WeeklyBasePlan struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Status          string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	WeekStartDate   *time.Time `gorm:"type:date" json:"week_start_date"`
	Days            JSONMap    `gorm:"type:jsonb" json:"days"`
	GenerationJobID *string    `gorm:"type:uuid;index" json:"generation_job_id"`
	IsLocked        bool       `gorm:"not null;default:false" json:"is_locked"`
	EditCounts      JSONMap    `gorm:"type:jsonb" json:"edit_counts"`
	GeneratedAt     *time.Time `json:"generated_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (WeeklyBasePlan) TableName() string {
	return "weekly_base_plans"
}

package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/lakshayybhati/liftor-worker/internal/model"
)

// CustomValidator wraps the validator instance with custom validation functions
type CustomValidator struct {
	validator *validator.Validate
}

// NewCustomValidator creates a new custom validator instance
func NewCustomValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("plan_goal", validatePlanGoal)
	_ = v.RegisterValidation("dietary_prefs", validateDietaryPrefs)

	return &CustomValidator{
		validator: v,
	}
}

// Validate validates a struct
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// GetValidator returns the underlying validator instance
func (cv *CustomValidator) GetValidator() *validator.Validate {
	return cv.validator
}

// validatePlanGoal accepts only the known fitness goal values.
func validatePlanGoal(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case model.GoalWeightLoss, model.GoalMuscleGain, model.GoalEndurance,
		model.GoalGeneralFitness, model.GoalFlexibility:
		return true
	}
	return false
}

// validateDietaryPrefs allows at most one dietary base preference
// (vegetarian, eggitarian, non-veg) in the preference set.
func validateDietaryPrefs(fl validator.FieldLevel) bool {
	prefs, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	bases := 0
	for _, pref := range prefs {
		switch pref {
		case model.DietVegetarian, model.DietEggitarian, model.DietNonVeg:
			bases++
		}
	}
	return bases <= 1
}

// ValidatePlanGoal is the exported version for registration with Gin's binding.
func ValidatePlanGoal(fl validator.FieldLevel) bool {
	return validatePlanGoal(fl)
}

// ValidateDietaryPrefs is the exported version for registration with Gin's binding.
func ValidateDietaryPrefs(fl validator.FieldLevel) bool {
	return validateDietaryPrefs(fl)
}

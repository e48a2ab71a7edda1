package service

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/lakshayybhati/liftor-worker/internal/model"
)

// FoodNutrition is kcal and protein per 100 g.
type FoodNutrition struct {
	Kcal    float64
	Protein float64
}

type foodEntry struct {
	Name      string
	Nutrition FoodNutrition
}

// foodTable lists common foods in match-priority order: a meal item's name
// is matched by case-insensitive substring against these keys top to
// bottom, so more specific names come before generic ones.
var foodTable = []foodEntry{
	{"chicken breast", FoodNutrition{165, 31}},
	{"chicken", FoodNutrition{190, 27}},
	{"paneer", FoodNutrition{265, 18}},
	{"tofu", FoodNutrition{76, 8}},
	{"egg white", FoodNutrition{52, 11}},
	{"egg", FoodNutrition{155, 13}},
	{"salmon", FoodNutrition{208, 20}},
	{"tuna", FoodNutrition{132, 28}},
	{"fish", FoodNutrition{140, 24}},
	{"shrimp", FoodNutrition{99, 24}},
	{"beef", FoodNutrition{250, 26}},
	{"pork", FoodNutrition{242, 27}},
	{"turkey", FoodNutrition{135, 29}},
	{"greek yogurt", FoodNutrition{59, 10}},
	{"yogurt", FoodNutrition{61, 3.5}},
	{"curd", FoodNutrition{98, 11}},
	{"milk", FoodNutrition{62, 3.2}},
	{"cottage cheese", FoodNutrition{98, 11}},
	{"cheese", FoodNutrition{402, 25}},
	{"whey protein", FoodNutrition{400, 80}},
	{"protein powder", FoodNutrition{400, 80}},
	{"brown rice", FoodNutrition{111, 2.6}},
	{"white rice", FoodNutrition{130, 2.7}},
	{"rice", FoodNutrition{130, 2.7}},
	{"quinoa", FoodNutrition{120, 4.4}},
	{"oats", FoodNutrition{389, 17}},
	{"oatmeal", FoodNutrition{68, 2.4}},
	{"whole wheat bread", FoodNutrition{247, 13}},
	{"bread", FoodNutrition{265, 9}},
	{"roti", FoodNutrition{264, 9}},
	{"chapati", FoodNutrition{264, 9}},
	{"pasta", FoodNutrition{131, 5}},
	{"sweet potato", FoodNutrition{86, 1.6}},
	{"potato", FoodNutrition{77, 2}},
	{"lentils", FoodNutrition{116, 9}},
	{"dal", FoodNutrition{116, 9}},
	{"chickpeas", FoodNutrition{164, 8.9}},
	{"rajma", FoodNutrition{127, 8.7}},
	{"kidney beans", FoodNutrition{127, 8.7}},
	{"black beans", FoodNutrition{132, 8.9}},
	{"beans", FoodNutrition{130, 8.5}},
	{"peanut butter", FoodNutrition{588, 25}},
	{"almonds", FoodNutrition{579, 21}},
	{"walnuts", FoodNutrition{654, 15}},
	{"peanuts", FoodNutrition{567, 26}},
	{"nuts", FoodNutrition{600, 20}},
	{"banana", FoodNutrition{89, 1.1}},
	{"apple", FoodNutrition{52, 0.3}},
	{"orange", FoodNutrition{47, 0.9}},
	{"berries", FoodNutrition{57, 0.7}},
	{"mango", FoodNutrition{60, 0.8}},
	{"avocado", FoodNutrition{160, 2}},
	{"spinach", FoodNutrition{23, 2.9}},
	{"broccoli", FoodNutrition{34, 2.8}},
	{"salad", FoodNutrition{20, 1.5}},
	{"vegetables", FoodNutrition{40, 2}},
	{"olive oil", FoodNutrition{884, 0}},
	{"ghee", FoodNutrition{900, 0}},
	{"butter", FoodNutrition{717, 0.9}},
	{"honey", FoodNutrition{304, 0.3}},
}

// fallbackNutrition is used for foods absent from the table.
var fallbackNutrition = FoodNutrition{Kcal: 150, Protein: 8}

// unit conversions to grams (ml treated 1:1).
var unitGrams = map[string]float64{
	"g":      1,
	"gram":   1,
	"grams":  1,
	"gm":     1,
	"kg":     1000,
	"oz":     28.35,
	"ounce":  28.35,
	"ounces": 28.35,
	"cup":    240,
	"cups":   240,
	"tbsp":   15,
	"tsp":    5,
	"slice":  30,
	"slices": 30,
	"piece":  100,
	"pieces": 100,
	"pc":     100,
	"pcs":    100,
	"scoop":  30,
	"scoops": 30,
	"ml":     1,
	"l":      1000,
	"liter":  1000,
	"litre":  1000,
}

// MealEstimate is the approximate nutrition of one meal.
type MealEstimate struct {
	Name    string  `json:"name"`
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
}

// MealsEstimate sums per-meal estimates across a day.
type MealsEstimate struct {
	TotalKcal    float64        `json:"totalKcal"`
	TotalProtein float64        `json:"totalProtein"`
	PerMeal      []MealEstimate `json:"perMeal"`
}

// EstimateFood approximates kcal and protein for a named food and a
// quantity string such as "150g", "1 cup", or "2 scoops".
func EstimateFood(name, quantity string) FoodNutrition {
	grams := parseQuantityGrams(quantity)
	per100 := lookupFood(name)
	scale := grams / 100
	return FoodNutrition{
		Kcal:    per100.Kcal * scale,
		Protein: per100.Protein * scale,
	}
}

// EstimateMeals approximates a day's intake across its meals.
func EstimateMeals(meals []model.Meal) MealsEstimate {
	estimate := MealsEstimate{PerMeal: make([]MealEstimate, 0, len(meals))}
	for _, meal := range meals {
		mealEst := MealEstimate{Name: meal.Name}
		for _, item := range meal.Items {
			n := EstimateFood(item.Food, item.Quantity)
			mealEst.Kcal += n.Kcal
			mealEst.Protein += n.Protein
		}
		estimate.TotalKcal += mealEst.Kcal
		estimate.TotalProtein += mealEst.Protein
		estimate.PerMeal = append(estimate.PerMeal, mealEst)
	}
	return estimate
}

func lookupFood(name string) FoodNutrition {
	lower := strings.ToLower(name)
	for _, entry := range foodTable {
		if strings.Contains(lower, entry.Name) {
			return entry.Nutrition
		}
	}
	return fallbackNutrition
}

// parseQuantityGrams parses a leading number and optional unit, converting
// to grams. Unitless quantities are grams; an unparseable quantity counts
// as one 100 g piece.
func parseQuantityGrams(quantity string) float64 {
	s := strings.TrimSpace(strings.ToLower(quantity))
	if s == "" {
		return 100
	}

	numEnd := 0
	for numEnd < len(s) && (unicode.IsDigit(rune(s[numEnd])) || s[numEnd] == '.' || s[numEnd] == '/') {
		numEnd++
	}
	amount := parseAmount(s[:numEnd])
	if amount <= 0 {
		return 100
	}

	unit := strings.TrimSpace(s[numEnd:])
	unit = strings.TrimLeft(unit, " ")
	if idx := strings.IndexFunc(unit, unicode.IsSpace); idx > 0 {
		unit = unit[:idx]
	}
	if unit == "" {
		return amount
	}
	if grams, ok := unitGrams[unit]; ok {
		return amount * grams
	}
	return amount
}

// parseAmount handles plain decimals plus simple fractions like "1/2".
func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "/"); idx > 0 && idx < len(s)-1 {
		num, err1 := strconv.ParseFloat(s[:idx], 64)
		den, err2 := strconv.ParseFloat(s[idx+1:], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return num / den
		}
		return 0
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return amount
}

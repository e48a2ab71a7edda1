package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lakshayybhati/liftor-worker/internal/errors"
	"github.com/lakshayybhati/liftor-worker/internal/model"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/jsonrepair"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	"go.uber.org/zap"
)

const (
	tokensWorkoutRedo   = 6000
	tokensNutritionRedo = 6000
)

// generateRedo mutates an existing plan instead of running the split-first
// pipeline: at most one workout call, one nutrition call, and one short
// reasons call, merged into a clone of the source plan's days.
func (o *Orchestrator) generateRedo(ctx context.Context, profile *model.ProfileSnapshot, redo *RedoContext) (*PipelineResult, error) {
	builder := NewPromptBuilder(profile)

	days, err := cloneDays(redo.SourceDays)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedo, "source plan days unreadable")
	}

	scope := redo.Scope
	if scope == "" {
		scope = model.RedoScopeBoth
	}

	if scope == model.RedoScopeWorkout || scope == model.RedoScopeBoth {
		if err := o.redoWorkouts(ctx, builder, days, redo.Reason); err != nil {
			return nil, err
		}
	}

	if scope == model.RedoScopeNutrition || scope == model.RedoScopeBoth {
		if err := o.redoNutrition(ctx, builder, days, redo.Reason); err != nil {
			return nil, err
		}
	}

	o.redoReasons(ctx, builder, days, redo.Reason)

	return &PipelineResult{
		Plan: &model.GeneratedPlan{
			ID:          uuid.NewString(),
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Days:        days,
		},
	}, nil
}

func (o *Orchestrator) redoWorkouts(ctx context.Context, builder *PromptBuilder, days map[string]*model.PlanDay, reason string) error {
	prompt := builder.BuildWorkoutRedoPrompt(daysAsMap(days), reason)
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensWorkoutRedo)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeWorkoutRedo, "workout redo call failed")
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeWorkoutRedo, "workout redo parse failed")
	}

	updated := 0
	for _, day := range model.Weekdays {
		workout, err := decodeAs[model.DayWorkout](parsed[day])
		if err != nil || workout == nil || len(workout.Blocks) == 0 {
			continue
		}
		if planDay := days[day]; planDay != nil {
			planDay.Workout = workout
			updated++
		}
	}
	if updated == 0 {
		return apperrors.New(apperrors.CodeWorkoutRedo, "workout redo produced no usable days")
	}
	return nil
}

func (o *Orchestrator) redoNutrition(ctx context.Context, builder *PromptBuilder, days map[string]*model.PlanDay, reason string) error {
	prompt := builder.BuildNutritionRedoPrompt(daysAsMap(days), reason)
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensNutritionRedo)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeNutritionRedo, "nutrition redo call failed")
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeNutritionRedo, "nutrition redo parse failed")
	}

	updated := 0
	for _, day := range model.Weekdays {
		nutrition, err := decodeAs[model.DayNutrition](parsed[day])
		if err != nil || nutrition == nil || nutrition.TotalKcal <= 0 {
			continue
		}
		if planDay := days[day]; planDay != nil {
			planDay.Nutrition = nutrition
			updated++
		}
	}
	if updated == 0 {
		return apperrors.New(apperrors.CodeNutritionRedo, "nutrition redo produced no usable days")
	}
	return nil
}

// redoReasons refreshes the blurbs; a generic line stands in per day on
// failure, which never aborts the redo.
func (o *Orchestrator) redoReasons(ctx context.Context, builder *PromptBuilder, days map[string]*model.PlanDay, reason string) {
	prompt := builder.BuildRedoReasonsPrompt(daysAsMap(days), reason)
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensReasons)
	if err == nil {
		if parsed, parseErr := jsonrepair.Parse(raw); parseErr == nil {
			for _, day := range model.Weekdays {
				if text, ok := parsed[day].(string); ok && text != "" {
					if planDay := days[day]; planDay != nil {
						planDay.Reason = text
					}
				}
			}
			return
		}
	}
	logger.Warn("redo reasons call failed, using generic blurbs", zap.Error(err))
	for _, planDay := range days {
		if planDay != nil {
			planDay.Reason = "Updated per your feedback; the rest of your plan carries on unchanged."
		}
	}
}

// cloneDays deep-copies the source plan's days through JSON so redo edits
// never alias the stored plan.
func cloneDays(source model.JSONMap) (map[string]*model.PlanDay, error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}
	var days map[string]*model.PlanDay
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, err
	}
	for _, day := range model.Weekdays {
		if days[day] == nil {
			days[day] = &model.PlanDay{}
		}
	}
	return days, nil
}

func daysAsMap(days map[string]*model.PlanDay) model.JSONMap {
	data, err := json.Marshal(days)
	if err != nil {
		return model.JSONMap{}
	}
	var out model.JSONMap
	if err := json.Unmarshal(data, &out); err != nil {
		return model.JSONMap{}
	}
	return out
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/lakshayybhati/liftor-worker/internal/errors"
	"github.com/lakshayybhati/liftor-worker/internal/model"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/jsonrepair"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	"github.com/lakshayybhati/liftor-worker/internal/repository"
	"go.uber.org/zap"
)

// Max-token hints per stage.
const (
	tokensSplit         = 2000
	tokensBaseNutrition = 3000
	tokensDayWorkout    = 2500
	tokensNutritionAdj  = 2000
	tokensSupplements   = 5000
	tokensReasons       = 2000
	tokensVerify        = 1000
)

// TimeBudget reports whether the orchestrator should stop starting new
// stages and how much wall-clock remains.
type TimeBudget func() (shouldYield bool, remaining time.Duration)

// PipelineResult is the orchestrator outcome: a plan when the pipeline ran
// to completion, or yielded=true when it stopped on budget.
type PipelineResult struct {
	Plan    *model.GeneratedPlan
	Yielded bool
}

// RedoContext switches the orchestrator onto the redo path.
type RedoContext struct {
	Reason     string
	Scope      string
	SourceDays model.JSONMap
}

// Orchestrator drives the split-first generation state machine: split,
// base nutrition, parallel per-day fan-out, verification, reasons, merge,
// and deterministic post-fixes, checkpointing after every stage so a
// successor invocation resumes instead of restarting.
type Orchestrator struct {
	llm         LLMClient
	checkpoints repository.CheckpointRepository
	// onCheckpoint, when set, observes each successful phase save.
	onCheckpoint func(phase int)
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(llm LLMClient, checkpoints repository.CheckpointRepository) *Orchestrator {
	return &Orchestrator{
		llm:         llm,
		checkpoints: checkpoints,
	}
}

// SetCheckpointHook registers a best-effort observer of phase saves.
func (o *Orchestrator) SetCheckpointHook(hook func(phase int)) {
	o.onCheckpoint = hook
}

// Generate runs the pipeline for one job. The checkpoint carries phases
// already completed by a predecessor; stages at or below its phase are
// skipped with their artifacts taken from the checkpoint.
func (o *Orchestrator) Generate(
	ctx context.Context,
	jobID string,
	profile *model.ProfileSnapshot,
	cp *model.Checkpoint,
	budget TimeBudget,
	redo *RedoContext,
) (*PipelineResult, error) {
	if cp == nil {
		cp = &model.Checkpoint{Phase: model.PhaseNone}
	}

	if redo != nil && len(redo.SourceDays) > 0 {
		return o.generateRedo(ctx, profile, redo)
	}

	builder := NewPromptBuilder(profile)

	// Stage 0: weekly split.
	if cp.Phase < model.PhaseSplitComplete {
		if yielded := o.checkBudget(budget, "split"); yielded {
			return &PipelineResult{Yielded: true}, nil
		}
		split, err := o.runSplit(ctx, builder)
		if err != nil {
			return nil, err
		}
		cp.WorkoutSplit = &split
		o.saveCheckpoint(ctx, jobID, model.PhaseSplitComplete, cp)
	}

	// Stage 1: base nutrition.
	if cp.Phase < model.PhaseBaseNutritionComplete {
		if yielded := o.checkBudget(budget, "base nutrition"); yielded {
			return &PipelineResult{Yielded: true}, nil
		}
		base, err := o.runBaseNutrition(ctx, builder)
		if err != nil {
			return nil, err
		}
		cp.BaseNutrition = base
		o.saveCheckpoint(ctx, jobID, model.PhaseBaseNutritionComplete, cp)
	}

	// Stage 2: per-day fan-out plus the weekly supplements call.
	if cp.Phase < model.PhaseSupplementsComplete {
		if yielded := o.checkBudget(budget, "fan-out"); yielded {
			return &PipelineResult{Yielded: true}, nil
		}
		o.runFanOut(ctx, builder, cp)
		o.saveCheckpoint(ctx, jobID, model.PhaseSupplementsComplete, cp)
	}

	// Stage 3: verification. Log-only; never fails the pipeline.
	if cp.Phase < model.PhaseVerifiersComplete {
		if yielded := o.checkBudget(budget, "verification"); yielded {
			return &PipelineResult{Yielded: true}, nil
		}
		o.runVerification(ctx, builder, cp)
		o.saveCheckpoint(ctx, jobID, model.PhaseVerifiersComplete, cp)
	}

	// Stage 4: per-day reasons.
	if cp.Phase < model.PhaseReasonsComplete {
		if yielded := o.checkBudget(budget, "reasons"); yielded {
			return &PipelineResult{Yielded: true}, nil
		}
		cp.DailyReasons = o.runReasons(ctx, builder, cp)
		o.saveCheckpoint(ctx, jobID, model.PhaseReasonsComplete, cp)
	}

	plan := o.merge(builder, cp)
	return &PipelineResult{Plan: plan}, nil
}

func (o *Orchestrator) checkBudget(budget TimeBudget, stage string) bool {
	if budget == nil {
		return false
	}
	shouldYield, remaining := budget()
	if shouldYield {
		logger.Info("yielding before stage",
			zap.String("stage", stage),
			zap.Duration("remaining", remaining),
		)
	}
	return shouldYield
}

// saveCheckpoint persists phase progress. Failures are logged and
// swallowed: checkpointing buys cheap resumption, it is not a correctness
// requirement within one invocation.
func (o *Orchestrator) saveCheckpoint(ctx context.Context, jobID string, phase int, cp *model.Checkpoint) {
	cp.Phase = phase
	if o.checkpoints != nil {
		if err := o.checkpoints.Save(ctx, jobID, phase, cp); err != nil {
			logger.Errorf("checkpoint save failed", err,
				zap.String("job_id", jobID),
				zap.Int("phase", phase),
			)
			return
		}
	}
	if o.onCheckpoint != nil {
		o.onCheckpoint(phase)
	}
}

// runSplit generates the weekly split and fills any weekday the model
// left out with a rest skeleton.
func (o *Orchestrator) runSplit(ctx context.Context, builder *PromptBuilder) (model.WorkoutSplit, error) {
	prompt := builder.BuildSplitPrompt()
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensSplit)
	if err != nil {
		return nil, err
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		return nil, err
	}

	split := make(model.WorkoutSplit, len(model.Weekdays))
	for _, day := range model.Weekdays {
		slot, err := decodeAs[model.SplitDay](parsed[day])
		if err != nil || slot == nil {
			split[day] = model.RestSplitDay()
			continue
		}
		if slot.Intensity == "" {
			if slot.Rest {
				slot.Intensity = model.IntensityRest
			} else {
				slot.Intensity = model.IntensityModerate
			}
		}
		if len(slot.Focus) == 0 {
			slot.Focus = []string{"Rest", "Recovery"}
			slot.Rest = true
			slot.Intensity = model.IntensityRest
		}
		split[day] = slot
	}

	if got := split.TrainingDayCount(); got != builder.profile.TrainingDays {
		// Tolerated: the split is used as-is, mismatch and all.
		logger.Warn("split training-day count disagrees with profile",
			zap.Int("split_days", got),
			zap.Int("profile_days", builder.profile.TrainingDays),
		)
	}

	return split, nil
}

func (o *Orchestrator) runBaseNutrition(ctx context.Context, builder *PromptBuilder) (*model.BaseNutrition, error) {
	prompt := builder.BuildBaseNutritionPrompt()
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensBaseNutrition)
	if err != nil {
		return nil, err
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		return nil, err
	}
	base, err := decodeAs[model.BaseNutrition](asInterface(parsed))
	if err != nil || base == nil {
		return nil, apperrors.Wrap(err, apperrors.CodeJSONParse, "base nutrition shape mismatch")
	}
	if base.MealsPerDay <= 0 {
		base.MealsPerDay = builder.profile.MealsPerDay()
	}
	if base.HydrationL <= 0 {
		base.HydrationL = 2.5
	}
	return base, nil
}

// runFanOut launches the seven daily-workout tasks, seven nutrition
// adjustment tasks, and the weekly supplements task concurrently and
// aggregates behind a single barrier. Individual failures leave a nil
// slot (workouts, nutrition) or a deterministic fallback (supplements);
// no per-slot error escapes the stage.
func (o *Orchestrator) runFanOut(ctx context.Context, builder *PromptBuilder, cp *model.Checkpoint) {
	split := *cp.WorkoutSplit
	base := cp.BaseNutrition

	workouts := make(map[string]*model.DayWorkout, len(model.Weekdays))
	nutrition := make(map[string]*model.DayNutrition, len(model.Weekdays))
	deltas := make(map[string][]string, len(model.Weekdays))
	var supplements *model.SupplementsData

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, day := range model.Weekdays {
		splitDay := split[day]

		wg.Add(1)
		go func(day string, splitDay *model.SplitDay) {
			defer wg.Done()
			workout := o.runDayWorkout(ctx, builder, day, splitDay)
			mu.Lock()
			workouts[day] = workout
			mu.Unlock()
		}(day, splitDay)

		wg.Add(1)
		go func(day string, splitDay *model.SplitDay) {
			defer wg.Done()
			dayNutrition, adjustments := o.runNutritionAdjust(ctx, builder, day, splitDay, base)
			mu.Lock()
			nutrition[day] = dayNutrition
			if adjustments != nil {
				deltas[day] = adjustments
			}
			mu.Unlock()
		}(day, splitDay)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		result := o.runSupplements(ctx, builder, split)
		mu.Lock()
		supplements = result
		mu.Unlock()
	}()

	wg.Wait()

	cp.DailyWorkouts = workouts
	cp.DailyNutrition = nutrition
	cp.NutritionDeltas = deltas
	cp.SupplementsData = supplements
}

// runDayWorkout generates one day's workout. Rest days short-circuit to a
// deterministic mobility block without touching the model.
func (o *Orchestrator) runDayWorkout(ctx context.Context, builder *PromptBuilder, day string, splitDay *model.SplitDay) *model.DayWorkout {
	if splitDay.Rest {
		return restDayWorkout()
	}

	prompt := builder.BuildDayWorkoutPrompt(day, splitDay)
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensDayWorkout)
	if err != nil {
		logger.Errorf("day workout generation failed", err, zap.String("day", day))
		return nil
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		logger.Errorf("day workout parse failed", err, zap.String("day", day))
		return nil
	}
	workout, err := decodeAs[model.DayWorkout](asInterface(parsed))
	if err != nil || workout == nil {
		logger.Errorf("day workout shape mismatch", err, zap.String("day", day))
		return nil
	}
	if len(workout.Focus) == 0 {
		workout.Focus = splitDay.Focus
	}
	return workout
}

func (o *Orchestrator) runNutritionAdjust(ctx context.Context, builder *PromptBuilder, day string, splitDay *model.SplitDay, base *model.BaseNutrition) (*model.DayNutrition, []string) {
	prompt := builder.BuildNutritionAdjustPrompt(day, splitDay, base)
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensNutritionAdj)
	if err != nil {
		logger.Errorf("nutrition adjustment failed", err, zap.String("day", day))
		return nil, nil
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		logger.Errorf("nutrition adjustment parse failed", err, zap.String("day", day))
		return nil, nil
	}
	dayNutrition, err := decodeAs[model.DayNutrition](asInterface(parsed))
	if err != nil || dayNutrition == nil {
		logger.Errorf("nutrition adjustment shape mismatch", err, zap.String("day", day))
		return nil, nil
	}
	return dayNutrition, dayNutrition.Adjustments
}

func (o *Orchestrator) runSupplements(ctx context.Context, builder *PromptBuilder, split model.WorkoutSplit) *model.SupplementsData {
	prompt := builder.BuildSupplementsPrompt(split)
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensSupplements)
	if err != nil {
		logger.Errorf("supplements generation failed, using fallback", err)
		return fallbackSupplements(builder.profile, split)
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		logger.Errorf("supplements parse failed, using fallback", err)
		return fallbackSupplements(builder.profile, split)
	}
	supplements, err := decodeAs[model.SupplementsData](asInterface(parsed))
	if err != nil || supplements == nil || len(supplements.Days) == 0 {
		logger.Error("supplements shape mismatch, using fallback")
		return fallbackSupplements(builder.profile, split)
	}
	return supplements
}

// runVerification fans out one workout verifier and one nutrition verifier
// per present day plus one supplements verifier. Verifier failures
// downgrade to valid; the only writes back into the plan are the
// deterministic clamps on stated calories and protein.
func (o *Orchestrator) runVerification(ctx context.Context, builder *PromptBuilder, cp *model.Checkpoint) {
	targets := builder.Targets()

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, day := range model.Weekdays {
		workout := cp.DailyWorkouts[day]
		if workout != nil {
			wg.Add(1)
			go func(day string, workout *model.DayWorkout) {
				defer wg.Done()
				result := o.runVerifier(ctx, builder.BuildWorkoutVerifyPrompt(day, (*cp.WorkoutSplit)[day], workout))
				if !result.IsValid {
					logger.Warn("workout verifier reported errors",
						zap.String("day", day),
						zap.Strings("errors", result.Errors),
					)
				}
			}(day, workout)
		}

		dayNutrition := cp.DailyNutrition[day]
		if dayNutrition != nil {
			wg.Add(1)
			go func(day string, dayNutrition *model.DayNutrition) {
				defer wg.Done()
				estimate := EstimateMeals(dayNutrition.Meals)
				result := o.runVerifier(ctx, builder.BuildNutritionVerifyPrompt(day, dayNutrition, estimate))
				if !result.IsValid {
					logger.Warn("nutrition verifier reported errors",
						zap.String("day", day),
						zap.Strings("errors", result.Errors),
					)
				}

				calculatedKcal := estimate.TotalKcal
				if result.CalculatedCalories != nil {
					calculatedKcal = *result.CalculatedCalories
				}
				calculatedProtein := estimate.TotalProtein
				if result.CalculatedProtein != nil {
					calculatedProtein = *result.CalculatedProtein
				}

				mu.Lock()
				clampNutrition(dayNutrition, targets, calculatedKcal, calculatedProtein, day)
				mu.Unlock()
			}(day, dayNutrition)
		}
	}

	if cp.SupplementsData != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := o.runVerifier(ctx, builder.BuildSupplementsVerifyPrompt(cp.SupplementsData))
			if !result.IsValid {
				logger.Warn("supplements verifier reported errors",
					zap.Strings("errors", result.Errors),
				)
			}
		}()
	}

	wg.Wait()
}

// clampNutrition overwrites a stated total that strays too far from the
// calculated figure, pulling it inside the target window while keeping the
// calculated value on the record.
func clampNutrition(n *model.DayNutrition, targets NutritionTargets, calculatedKcal, calculatedProtein float64, day string) {
	if diff := n.TotalKcal - calculatedKcal; diff > 200 || diff < -200 {
		clamped := clampFloat(calculatedKcal, targets.Calories-100, targets.Calories+100)
		logger.Warn("clamping stated calories",
			zap.String("day", day),
			zap.Float64("stated", n.TotalKcal),
			zap.Float64("calculated", calculatedKcal),
			zap.Float64("clamped", clamped),
		)
		n.TotalKcal = clamped
		n.CalculatedKcal = &calculatedKcal
	}
	if diff := n.ProteinG - calculatedProtein; diff > 20 || diff < -20 {
		clamped := clampFloat(calculatedProtein, targets.ProteinG-20, targets.ProteinG+20)
		logger.Warn("clamping stated protein",
			zap.String("day", day),
			zap.Float64("stated", n.ProteinG),
			zap.Float64("calculated", calculatedProtein),
			zap.Float64("clamped", clamped),
		)
		n.ProteinG = clamped
		n.CalculatedProtein = &calculatedProtein
	}
}

// runVerifier executes one verifier call, downgrading every failure mode
// to a passing result.
func (o *Orchestrator) runVerifier(ctx context.Context, prompt Prompt) VerifyResult {
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensVerify)
	if err != nil {
		logger.Errorf("verifier call failed, treating as valid", err)
		return VerifyResult{IsValid: true, Errors: []string{}}
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		logger.Errorf("verifier parse failed, treating as valid", err)
		return VerifyResult{IsValid: true, Errors: []string{}}
	}
	result, err := decodeAs[VerifyResult](asInterface(parsed))
	if err != nil || result == nil {
		return VerifyResult{IsValid: true, Errors: []string{}}
	}
	return *result
}

// runReasons produces the per-day blurbs, falling back to deterministic
// text when the call or parse fails.
func (o *Orchestrator) runReasons(ctx context.Context, builder *PromptBuilder, cp *model.Checkpoint) map[string]string {
	prompt := builder.BuildReasonsPrompt(*cp.WorkoutSplit, cp.NutritionDeltas, cp.SupplementsData)
	raw, err := o.llm.Generate(ctx, prompt.System, prompt.User, tokensReasons)
	if err == nil {
		if parsed, parseErr := jsonrepair.Parse(raw); parseErr == nil {
			reasons := make(map[string]string, len(model.Weekdays))
			for _, day := range model.Weekdays {
				if text, ok := parsed[day].(string); ok && text != "" {
					reasons[day] = text
				}
			}
			if len(reasons) > 0 {
				fillMissingReasons(reasons, *cp.WorkoutSplit)
				return reasons
			}
		} else {
			err = parseErr
		}
	}
	logger.Errorf("reasons generation failed, using fallback", err)

	reasons := make(map[string]string, len(model.Weekdays))
	fillMissingReasons(reasons, *cp.WorkoutSplit)
	return reasons
}

// fillMissingReasons backfills deterministic blurbs: a recovery line for
// rest days, the focus tags for training days.
func fillMissingReasons(reasons map[string]string, split model.WorkoutSplit) {
	for _, day := range model.Weekdays {
		if _, ok := reasons[day]; ok {
			continue
		}
		splitDay := split[day]
		if splitDay == nil || splitDay.Rest {
			reasons[day] = "Recovery day: easy movement, hydration, and sleep consolidate the week's training."
		} else {
			reasons[day] = fmt.Sprintf("Focused %s work keeps you progressing toward your goal.", joinFocus(splitDay.Focus))
		}
	}
}

// decodeAs re-marshals a loosely-typed repair-parser value into a typed
// struct.
func decodeAs[T any](v interface{}) (*T, error) {
	if v == nil {
		return nil, fmt.Errorf("missing value")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func asInterface(m map[string]interface{}) interface{} {
	return m
}

func clampFloat(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

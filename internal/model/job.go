package model

import (
	"encoding/json"
	"time"
)

// Job statuses.
const (
	JobStatusPending    = "pending"
	JobStatusGenerating = "generating"
	JobStatusGenerated  = "generated"
	JobStatusFailed     = "failed"
	JobStatusCompleted  = "completed"
)

// Redo scopes.
const (
	RedoScopeWorkout   = "workout"
	RedoScopeNutrition = "nutrition"
	RedoScopeBoth      = "both"
)

// Checkpoint phases. A job's checkpoint phase marks the latest fully
// completed pipeline stage; a resuming worker skips everything at or
// below it.
const (
	PhaseNone                    = 0
	PhaseSplitComplete           = 1
	PhaseBaseNutritionComplete   = 2
	PhaseWorkoutsComplete        = 3 // reserved
	PhaseNutritionAdjustComplete = 4 // reserved
	PhaseSupplementsComplete     = 5
	PhaseVerifiersComplete       = 6
	PhaseReasonsComplete         = 7
)

// PlanJob is one unit of plan-generation work. Rows are created by the API
// tier in state pending and mutated only by the queue RPCs and the current
// lease holder.
type PlanJob struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string     `gorm:"type:uuid;not null;index" json:"user_id"`
	ProfileSnapshot JSONMap    `gorm:"type:jsonb;not null" json:"profile_snapshot"`
	Status          string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RetryCount      int        `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries      int        `gorm:"not null;default:3" json:"max_retries"`
	TargetPlanID    *string    `gorm:"type:uuid" json:"target_plan_id"`
	CycleWeekStart  *time.Time `gorm:"type:date" json:"cycle_week_start"`
	CheckpointPhase int        `gorm:"not null;default:0" json:"checkpoint_phase"`
	CheckpointData  JSONMap    `gorm:"type:jsonb" json:"checkpoint_data"`
	IsRedo          bool       `gorm:"not null;default:false" json:"is_redo"`
	RedoReason      *string    `gorm:"type:text" json:"redo_reason"`
	RedoScope       *string    `gorm:"size:20" json:"redo_scope"`
	SourcePlanID    *string    `gorm:"type:uuid" json:"source_plan_id"`
	LeaseHolder     *string    `gorm:"size:64" json:"lease_holder"`
	LeaseExpiry     *time.Time `json:"lease_expiry"`
	ClaimCount      int        `gorm:"not null;default:0" json:"claim_count"`
	LastError       *string    `gorm:"type:text" json:"last_error"`
	LastErrorCode   *string    `gorm:"size:40" json:"last_error_code"`
	CreatedAt       time.Time  `json:"created_at"`
	ClaimedAt       *time.Time `json:"claimed_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (PlanJob) TableName() string {
	return "plan_generation_jobs"
}

// Profile decodes the embedded profile snapshot.
func (j *PlanJob) Profile() (*ProfileSnapshot, error) {
	data, err := json.Marshal(j.ProfileSnapshot)
	if err != nil {
		return nil, err
	}
	var profile ProfileSnapshot
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Checkpoint is the per-phase resume state. Payload fields are additive:
// the save at phase N carries everything recorded at phases below N.
type Checkpoint struct {
	Phase           int                     `json:"phase"`
	WorkoutSplit    *WorkoutSplit           `json:"workoutSplit,omitempty"`
	BaseNutrition   *BaseNutrition          `json:"baseNutrition,omitempty"`
	DailyWorkouts   map[string]*DayWorkout  `json:"dailyWorkouts,omitempty"`
	DailyNutrition  map[string]*DayNutrition `json:"dailyNutrition,omitempty"`
	NutritionDeltas map[string][]string     `json:"nutritionDeltas,omitempty"`
	SupplementsData *SupplementsData        `json:"supplementsData,omitempty"`
	DailyReasons    map[string]string       `json:"dailyReasons,omitempty"`
	Days            JSONMap                 `json:"days,omitempty"`
}

// CheckpointFromJob decodes the job's stored checkpoint. A job without one
// yields an empty phase-0 checkpoint.
func CheckpointFromJob(job *PlanJob) (*Checkpoint, error) {
	if len(job.CheckpointData) == 0 {
		return &Checkpoint{Phase: job.CheckpointPhase}, nil
	}
	data, err := json.Marshal(job.CheckpointData)
	if err != nil {
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	if cp.Phase < job.CheckpointPhase {
		cp.Phase = job.CheckpointPhase
	}
	return &cp, nil
}

// ToMap renders the checkpoint as the JSONB payload persisted on the job.
func (c *Checkpoint) ToMap() (JSONMap, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out JSONMap
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

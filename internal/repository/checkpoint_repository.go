package repository

import (
	"context"
	"errors"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"gorm.io/gorm"
)

// CheckpointRepository persists per-phase pipeline state on the job row.
// Saves are monotonic in phase; a stale invocation can never roll a
// successor's progress back.
type CheckpointRepository interface {
	Save(ctx context.Context, jobID string, phase int, checkpoint *model.Checkpoint) error
	Load(ctx context.Context, jobID string) (*model.Checkpoint, error)
}

type checkpointRepository struct {
	db *gorm.DB
}

// NewCheckpointRepository creates a new instance of CheckpointRepository
func NewCheckpointRepository(db *gorm.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) Save(ctx context.Context, jobID string, phase int, checkpoint *model.Checkpoint) error {
	checkpoint.Phase = phase
	payload, err := checkpoint.ToMap()
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE plan_generation_jobs
		SET checkpoint_phase = ?,
		    checkpoint_data = ?,
		    updated_at = now()
		WHERE id = ? AND checkpoint_phase <= ?`,
		phase, payload, jobID, phase).Error
}

func (r *checkpointRepository) Load(ctx context.Context, jobID string) (*model.Checkpoint, error) {
	var job model.PlanJob
	if err := r.db.WithContext(ctx).
		Select("checkpoint_phase", "checkpoint_data").
		Where("id = ?", jobID).
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.CheckpointFromJob(&job)
}

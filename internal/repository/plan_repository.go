package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"gorm.io/gorm"
)

// PlanRepository manages weekly base plan records.
type PlanRepository interface {
	Create(ctx context.Context, plan *model.WeeklyBasePlan) error
	GetByID(ctx context.Context, id string) (*model.WeeklyBasePlan, error)
	GetByJobID(ctx context.Context, jobID string) (*model.WeeklyBasePlan, error)
	// MarkGenerated stores the merged days and flips the record to generated.
	MarkGenerated(ctx context.Context, id string, days model.JSONMap) error
	// ResetPending clears a failed attempt's partial state so a retry can
	// start clean. unlinkJob also detaches the generation job reference.
	ResetPending(ctx context.Context, id string, unlinkJob bool) error
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new instance of PlanRepository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *model.WeeklyBasePlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*model.WeeklyBasePlan, error) {
	var plan model.WeeklyBasePlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) GetByJobID(ctx context.Context, jobID string) (*model.WeeklyBasePlan, error) {
	var plan model.WeeklyBasePlan
	if err := r.db.WithContext(ctx).Where("generation_job_id = ?", jobID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) MarkGenerated(ctx context.Context, id string, days model.JSONMap) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.WeeklyBasePlan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.PlanStatusGenerated,
			"days":         days,
			"generated_at": now,
		}).Error
}

func (r *planRepository) ResetPending(ctx context.Context, id string, unlinkJob bool) error {
	updates := map[string]interface{}{
		"status": model.PlanStatusPending,
		"days":   nil,
	}
	if unlinkJob {
		updates["generation_job_id"] = nil
	}
	return r.db.WithContext(ctx).Model(&model.WeeklyBasePlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

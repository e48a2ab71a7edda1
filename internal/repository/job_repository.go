package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"gorm.io/gorm"
)

// JobRepository is the queue adapter for plan-generation jobs. Claim and
// lease extension are single conditional UPDATE statements so two workers
// can never hold the same job; a read-then-write loop would race.
type JobRepository interface {
	// ClaimNext atomically claims the next eligible job for workerID and
	// returns its id, or "" when no work is available.
	ClaimNext(ctx context.Context, workerID string, leaseSeconds int) (string, error)
	// ExtendLease extends the lease iff workerID still holds it. A false
	// return means the lease was lost and the caller must stop mutating.
	ExtendLease(ctx context.Context, jobID, workerID string, extensionSeconds int) (bool, error)
	// Complete transitions the job to completed with the produced plan id.
	Complete(ctx context.Context, jobID, planID string) error
	// Fail records the error; the job returns to pending while retries
	// remain, otherwise it lands in terminal failed.
	Fail(ctx context.Context, jobID, message, code string) error
	GetByID(ctx context.Context, jobID string) (*model.PlanJob, error)
}

type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new instance of JobRepository
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// ClaimNext selects a pending job with no live lease, or a generating job
// whose lease expired, oldest first, and stamps the caller's lease on it.
func (r *jobRepository) ClaimNext(ctx context.Context, workerID string, leaseSeconds int) (string, error) {
	var jobID string
	err := r.db.WithContext(ctx).Raw(`
		UPDATE plan_generation_jobs
		SET status = 'generating',
		    lease_holder = ?,
		    lease_expiry = now() + make_interval(secs => ?),
		    claim_count = claim_count + 1,
		    claimed_at = now(),
		    updated_at = now()
		WHERE id = (
			SELECT id FROM plan_generation_jobs
			WHERE (status = 'pending' AND (lease_expiry IS NULL OR lease_expiry < now()))
			   OR (status = 'generating' AND lease_expiry < now())
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id`, workerID, leaseSeconds).Scan(&jobID).Error
	if err != nil {
		return "", err
	}
	return jobID, nil
}

func (r *jobRepository) ExtendLease(ctx context.Context, jobID, workerID string, extensionSeconds int) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE plan_generation_jobs
		SET lease_expiry = now() + make_interval(secs => ?),
		    updated_at = now()
		WHERE id = ? AND lease_holder = ? AND status = 'generating'`,
		extensionSeconds, jobID, workerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *jobRepository) Complete(ctx context.Context, jobID, planID string) error {
	return r.db.WithContext(ctx).Model(&model.PlanJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":         model.JobStatusCompleted,
			"target_plan_id": planID,
			"completed_at":   time.Now(),
			"lease_holder":   nil,
			"lease_expiry":   nil,
		}).Error
}

func (r *jobRepository) Fail(ctx context.Context, jobID, message, code string) error {
	// One conditional statement decides retry-vs-terminal on the server so
	// concurrent observers never see an intermediate state.
	return r.db.WithContext(ctx).Exec(`
		UPDATE plan_generation_jobs
		SET status = CASE WHEN retry_count < max_retries THEN 'pending' ELSE 'failed' END,
		    retry_count = CASE WHEN retry_count < max_retries THEN retry_count + 1 ELSE retry_count END,
		    last_error = ?,
		    last_error_code = ?,
		    lease_holder = NULL,
		    lease_expiry = NULL,
		    updated_at = now()
		WHERE id = ?`, message, code, jobID).Error
}

func (r *jobRepository) GetByID(ctx context.Context, jobID string) (*model.PlanJob, error) {
	var job model.PlanJob
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

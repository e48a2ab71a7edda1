package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lakshayybhati/liftor-worker/internal/config"
	apperrors "github.com/lakshayybhati/liftor-worker/internal/errors"
	"github.com/lakshayybhati/liftor-worker/internal/model"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	redispkg "github.com/lakshayybhati/liftor-worker/internal/pkg/redis"
	"github.com/lakshayybhati/liftor-worker/internal/repository"
	"github.com/lakshayybhati/liftor-worker/internal/validator"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// WorkerResult is the invocation response envelope.
type WorkerResult struct {
	Success         bool   `json:"success"`
	JobID           string `json:"jobId,omitempty"`
	PlanID          string `json:"planId,omitempty"`
	Status          string `json:"status,omitempty"`
	Yielded         bool   `json:"yielded,omitempty"`
	NoJobsAvailable bool   `json:"noJobsAvailable,omitempty"`
	Error           string `json:"error,omitempty"`
}

// WorkerService runs one job-claim-and-generate cycle per invocation:
// claim under a lease, heartbeat, drive the orchestrator inside the time
// budget, then complete, fail, or yield.
type WorkerService interface {
	RunOnce(ctx context.Context) *WorkerResult
}

type workerService struct {
	cfg          config.WorkerConfig
	jobs         repository.JobRepository
	plans        repository.PlanRepository
	checkpoints  repository.CheckpointRepository
	orchestrator *Orchestrator
	notifier     Notifier
	validator    *validator.CustomValidator
	redisClient  *goredis.Client
	selfURL      string
}

// NewWorkerService creates a new instance of WorkerService
func NewWorkerService(
	cfg config.WorkerConfig,
	jobs repository.JobRepository,
	plans repository.PlanRepository,
	checkpoints repository.CheckpointRepository,
	orchestrator *Orchestrator,
	notifier Notifier,
	redisClient *goredis.Client,
	selfURL string,
) WorkerService {
	return &workerService{
		cfg:          cfg,
		jobs:         jobs,
		plans:        plans,
		checkpoints:  checkpoints,
		orchestrator: orchestrator,
		notifier:     notifier,
		validator:    validator.NewCustomValidator(),
		redisClient:  redisClient,
		selfURL:      selfURL,
	}
}

func newWorkerID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("worker_%d_%s", time.Now().UnixMilli(), suffix)
}

func (s *workerService) RunOnce(ctx context.Context) *WorkerResult {
	workerID := newWorkerID()
	start := time.Now()

	jobID, err := s.jobs.ClaimNext(ctx, workerID, s.cfg.LeaseSeconds)
	if err != nil {
		logger.Errorf("job claim failed", err, zap.String("worker_id", workerID))
		return &WorkerResult{Success: false, Error: apperrors.CodeDB + ": " + err.Error()}
	}
	if jobID == "" {
		return &WorkerResult{Success: true, Status: "no_jobs", NoJobsAvailable: true}
	}

	logger.Info("job claimed",
		zap.String("worker_id", workerID),
		zap.String("job_id", jobID),
	)

	// Heartbeat: extend the lease on a fixed cadence until released. A
	// failed extension means the lease is lost; work finishes passively
	// with no further job mutations.
	var leaseLost atomic.Bool
	heartbeatCtx, stopHeartbeat := context.WithCancel(context.Background())
	defer stopHeartbeat()
	go s.heartbeat(heartbeatCtx, jobID, workerID, &leaseLost)

	result := s.process(ctx, jobID, workerID, start, &leaseLost)
	stopHeartbeat()
	return result
}

func (s *workerService) heartbeat(ctx context.Context, jobID, workerID string, leaseLost *atomic.Bool) {
	ticker := time.NewTicker(s.cfg.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := s.jobs.ExtendLease(ctx, jobID, workerID, s.cfg.LeaseSeconds)
			if err != nil {
				logger.Errorf("heartbeat failed", err, zap.String("job_id", jobID))
				continue
			}
			if !ok {
				logger.Warn("lease lost, finishing passively",
					zap.String("job_id", jobID),
					zap.String("worker_id", workerID),
				)
				leaseLost.Store(true)
				return
			}
			logger.Debug("lease extended", zap.String("job_id", jobID))
		}
	}
}

func (s *workerService) process(ctx context.Context, jobID, workerID string, start time.Time, leaseLost *atomic.Bool) *WorkerResult {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil || job == nil {
		if err == nil {
			err = fmt.Errorf("job %s vanished after claim", jobID)
		}
		logger.Errorf("job fetch failed", err, zap.String("job_id", jobID))
		return &WorkerResult{Success: false, JobID: jobID, Error: apperrors.CodeDB + ": " + err.Error()}
	}

	// Guard against double delivery after an out-of-band completion.
	if job.Status == model.JobStatusGenerated || job.Status == model.JobStatusCompleted {
		return &WorkerResult{Success: true, JobID: jobID, Status: "already_generated"}
	}

	profile, err := job.Profile()
	if err != nil {
		return s.failJob(ctx, job, apperrors.Wrap(err, apperrors.CodeValidation, "profile snapshot unreadable"), leaseLost)
	}
	if err := s.validator.Validate(profile); err != nil {
		return s.failJob(ctx, job, apperrors.Wrap(err, apperrors.CodeValidation, "profile snapshot invalid"), leaseLost)
	}

	checkpoint, err := model.CheckpointFromJob(job)
	if err != nil {
		logger.Errorf("checkpoint unreadable, restarting from phase 0", err, zap.String("job_id", jobID))
		checkpoint = &model.Checkpoint{Phase: model.PhaseNone}
	}

	redo := s.redoContext(ctx, job)

	plan, err := s.ensurePlanRecord(ctx, job)
	if err != nil {
		return s.failJob(ctx, job, apperrors.Wrap(err, apperrors.CodeDB, "plan record unavailable"), leaseLost)
	}

	s.mirrorProgress(ctx, jobID, checkpoint.Phase, "generating")
	s.orchestrator.SetCheckpointHook(func(phase int) {
		s.mirrorProgress(ctx, jobID, phase, "generating")
	})

	budget := s.timeBudget(start)

	result, genErr := s.runPipeline(ctx, jobID, profile, checkpoint, budget, redo)
	if genErr != nil {
		return s.failJobWithPlan(ctx, job, plan, genErr, leaseLost)
	}

	if result.Yielded {
		return s.yield(ctx, job, workerID, leaseLost)
	}

	return s.complete(ctx, job, plan, result.Plan, leaseLost)
}

// runPipeline funnels panics into a regular error so an unexpected crash
// still fails the job and triggers a retry.
func (s *workerService) runPipeline(
	ctx context.Context,
	jobID string,
	profile *model.ProfileSnapshot,
	checkpoint *model.Checkpoint,
	budget TimeBudget,
	redo *RedoContext,
) (result *PipelineResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.CodeUnexpected, "pipeline panic: %v", r)
		}
	}()
	return s.orchestrator.Generate(ctx, jobID, profile, checkpoint, budget, redo)
}

// timeBudget measures elapsed wall clock against the invocation budget.
func (s *workerService) timeBudget(start time.Time) TimeBudget {
	return func() (bool, time.Duration) {
		remaining := s.cfg.InvocationBudget - time.Since(start)
		return remaining < s.cfg.YieldThreshold, remaining
	}
}

// redoContext loads the source plan's days when the job is a redo.
func (s *workerService) redoContext(ctx context.Context, job *model.PlanJob) *RedoContext {
	if !job.IsRedo || job.SourcePlanID == nil {
		return nil
	}
	source, err := s.plans.GetByID(ctx, *job.SourcePlanID)
	if err != nil || source == nil || len(source.Days) == 0 {
		logger.Warn("redo source plan unavailable, falling back to full generation",
			zap.String("job_id", job.ID),
		)
		return nil
	}
	redo := &RedoContext{SourceDays: source.Days, Scope: model.RedoScopeBoth}
	if job.RedoReason != nil {
		redo.Reason = *job.RedoReason
	}
	if job.RedoScope != nil && *job.RedoScope != "" {
		redo.Scope = *job.RedoScope
	}
	return redo
}

// ensurePlanRecord attaches the job to its plan row, creating one in state
// generating when none exists yet.
func (s *workerService) ensurePlanRecord(ctx context.Context, job *model.PlanJob) (*model.WeeklyBasePlan, error) {
	if job.TargetPlanID != nil {
		plan, err := s.plans.GetByID(ctx, *job.TargetPlanID)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			return plan, nil
		}
	}
	if plan, err := s.plans.GetByJobID(ctx, job.ID); err != nil {
		return nil, err
	} else if plan != nil {
		return plan, nil
	}

	jobID := job.ID
	plan := &model.WeeklyBasePlan{
		ID:              uuid.NewString(),
		UserID:          job.UserID,
		Status:          model.PlanStatusGenerating,
		WeekStartDate:   job.CycleWeekStart,
		GenerationJobID: &jobID,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *workerService) yield(ctx context.Context, job *model.PlanJob, workerID string, leaseLost *atomic.Bool) *WorkerResult {
	// Shrink the lease so a successor claims the job immediately instead
	// of waiting out the full lease window.
	if !leaseLost.Load() {
		if _, err := s.jobs.ExtendLease(ctx, job.ID, workerID, s.cfg.YieldedLeaseSeconds); err != nil {
			logger.Errorf("lease shrink on yield failed", err, zap.String("job_id", job.ID))
		}
	}
	s.fireSelfInvocation()
	logger.Info("invocation yielded", zap.String("job_id", job.ID))
	return &WorkerResult{Success: true, JobID: job.ID, Status: "yielded", Yielded: true}
}

// fireSelfInvocation posts a handoff request to our own endpoint so the
// next invocation starts without waiting for the scheduler. Fire and
// forget; failures are irrelevant.
func (s *workerService) fireSelfInvocation() {
	if s.selfURL == "" {
		return
	}
	go func() {
		body := bytes.NewBufferString(`{"handoff": true}`)
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Post(s.selfURL, "application/json", body)
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
}

func (s *workerService) complete(ctx context.Context, job *model.PlanJob, planRecord *model.WeeklyBasePlan, plan *model.GeneratedPlan, leaseLost *atomic.Bool) *WorkerResult {
	days, err := plan.DaysMap()
	if err != nil {
		return s.failJobWithPlan(ctx, job, planRecord, apperrors.Wrap(err, apperrors.CodeGeneration, "plan serialization failed"), leaseLost)
	}

	if err := s.plans.MarkGenerated(ctx, planRecord.ID, days); err != nil {
		return s.failJobWithPlan(ctx, job, planRecord, apperrors.Wrap(err, apperrors.CodeDB, "plan persist failed"), leaseLost)
	}

	if leaseLost.Load() {
		// The plan is saved but the job belongs to someone else now.
		logger.Warn("completed after lease loss, leaving job record alone",
			zap.String("job_id", job.ID),
		)
		return &WorkerResult{Success: true, JobID: job.ID, PlanID: planRecord.ID, Status: "completed"}
	}

	if err := s.jobs.Complete(ctx, job.ID, planRecord.ID); err != nil {
		// The plan is already persisted; degrade to a warning.
		logger.Errorf("job completion update failed", err, zap.String("job_id", job.ID))
	}

	s.mirrorProgress(ctx, job.ID, model.PhaseReasonsComplete, "completed")
	s.notifier.Send(ctx, job.UserID,
		"Your weekly plan is ready",
		"Your personalized 7-day fitness plan has been generated.",
		map[string]interface{}{"planId": planRecord.ID, "screen": "plan"},
	)

	logger.Info("job completed",
		zap.String("job_id", job.ID),
		zap.String("plan_id", planRecord.ID),
	)
	return &WorkerResult{Success: true, JobID: job.ID, PlanID: planRecord.ID, Status: "completed"}
}

func (s *workerService) failJob(ctx context.Context, job *model.PlanJob, genErr error, leaseLost *atomic.Bool) *WorkerResult {
	return s.failJobWithPlan(ctx, job, nil, genErr, leaseLost)
}

func (s *workerService) failJobWithPlan(ctx context.Context, job *model.PlanJob, planRecord *model.WeeklyBasePlan, genErr error, leaseLost *atomic.Bool) *WorkerResult {
	code := apperrors.CodeOf(genErr)
	message := genErr.Error()
	retriesRemain := job.RetryCount < job.MaxRetries-1

	logger.Errorf("job failed", genErr,
		zap.String("job_id", job.ID),
		zap.String("code", code),
		zap.Int("retry_count", job.RetryCount),
	)

	if planRecord != nil {
		if err := s.plans.ResetPending(ctx, planRecord.ID, retriesRemain); err != nil {
			logger.Errorf("plan reset failed", err, zap.String("plan_id", planRecord.ID))
		}
	}

	if !leaseLost.Load() {
		if err := s.jobs.Fail(ctx, job.ID, message, code); err != nil {
			logger.Errorf("job fail update failed", err, zap.String("job_id", job.ID))
		}
	}

	s.mirrorProgress(ctx, job.ID, job.CheckpointPhase, "failed")

	// Only the final retry's failure is user-visible.
	if !retriesRemain {
		s.notifier.Send(ctx, job.UserID,
			"Plan generation failed",
			"We could not generate your plan. Please try again from the app.",
			map[string]interface{}{"jobId": job.ID, "screen": "home"},
		)
	}

	return &WorkerResult{Success: true, JobID: job.ID, Status: "failed", Error: message}
}

// mirrorProgress is the best-effort Redis progress mirror.
func (s *workerService) mirrorProgress(ctx context.Context, jobID string, phase int, status string) {
	err := redispkg.SetTaskProgress(ctx, s.redisClient, redispkg.TaskProgress{
		JobID:  jobID,
		Phase:  phase,
		Status: status,
	})
	if err != nil {
		logger.Debug("progress mirror write failed",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/metrics"
	"github.com/Harsh-BH/jobdeck/internal/repository"
)

// CancelJobUsecase cancels active jobs.
type CancelJobUsecase struct {
	repo   repository.JobRepository
	logger *zap.Logger
}

// NewCancelJobUsecase creates a new CancelJobUsecase.
func NewCancelJobUsecase(repo repository.JobRepository, logger *zap.Logger) *CancelJobUsecase {
	return &CancelJobUsecase{repo: repo, logger: logger}
}

// Execute moves the job to CANCELLED. Finished jobs yield domain.ErrInvalidState.
func (uc *CancelJobUsecase) Execute(ctx context.Context, id string) (*domain.Job, error) {
	job, err := uc.repo.Transition(ctx, id, domain.StatusCancelled, "Job cancelled by user")
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	metrics.JobsFinishedTotal.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
	uc.logger.Info("Job cancelled", zap.String("job_id", id))
	return job, nil
}

// DeleteJobUsecase removes jobs.
type DeleteJobUsecase struct {
	repo   repository.JobRepository
	logger *zap.Logger
}

// NewDeleteJobUsecase creates a new DeleteJobUsecase.
func NewDeleteJobUsecase(repo repository.JobRepository, logger *zap.Logger) *DeleteJobUsecase {
	return &DeleteJobUsecase{repo: repo, logger: logger}
}

// Execute deletes the job. A worker still processing it stops at its next checkpoint.
func (uc *DeleteJobUsecase) Execute(ctx context.Context, id string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	uc.logger.Info("Job deleted", zap.String("job_id", id))
	return nil
}

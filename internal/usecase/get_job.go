package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/repository"
)

// GetJobUsecase handles fetching a job snapshot.
type GetJobUsecase struct {
	repo   repository.JobRepository
	logger *zap.Logger
}

// NewGetJobUsecase creates a new GetJobUsecase.
func NewGetJobUsecase(repo repository.JobRepository, logger *zap.Logger) *GetJobUsecase {
	return &GetJobUsecase{
		repo:   repo,
		logger: logger,
	}
}

// Execute retrieves a job by its ID.
func (uc *GetJobUsecase) Execute(ctx context.Context, id string) (*domain.Job, error) {
	job, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		uc.logger.Debug("Job lookup failed", zap.String("job_id", id), zap.Error(err))
		return nil, err
	}
	return job, nil
}

// ListJobsUsecase lists a user's jobs.
type ListJobsUsecase struct {
	repo repository.JobRepository
}

// NewListJobsUsecase creates a new ListJobsUsecase.
func NewListJobsUsecase(repo repository.JobRepository) *ListJobsUsecase {
	return &ListJobsUsecase{repo: repo}
}

// Execute returns the user's jobs newest first. status may be empty.
func (uc *ListJobsUsecase) Execute(ctx context.Context, userID, status string) ([]*domain.Job, error) {
	if userID == "" {
		return nil, domain.ValidationError("user_id", "required")
	}
	var st domain.Status
	if status != "" {
		parsed, err := domain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	jobs, err := uc.repo.List(ctx, userID, st)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	return jobs, nil
}

// GetResultUsecase returns the artifact of a completed job.
type GetResultUsecase struct {
	repo repository.JobRepository
}

// NewGetResultUsecase creates a new GetResultUsecase.
func NewGetResultUsecase(repo repository.JobRepository) *GetResultUsecase {
	return &GetResultUsecase{repo: repo}
}

// Execute returns the artifact, domain.ErrResultNotReady before completion.
func (uc *GetResultUsecase) Execute(ctx context.Context, id string) (*domain.Artifact, error) {
	return uc.repo.GetResult(ctx, id)
}

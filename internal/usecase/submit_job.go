package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/metrics"
	"github.com/Harsh-BH/jobdeck/internal/publisher"
	"github.com/Harsh-BH/jobdeck/internal/repository"
)

const defaultDedupWindow = time.Second

// SubmitJobUsecase handles the business logic for submitting jobs.
type SubmitJobUsecase struct {
	repo      repository.JobRepository
	dedup     repository.SubmissionDeduper
	publisher publisher.Publisher
	window    time.Duration
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase. dedup may be nil, which
// disables duplicate detection.
func NewSubmitJobUsecase(
	repo repository.JobRepository,
	dedup repository.SubmissionDeduper,
	pub publisher.Publisher,
	window time.Duration,
	logger *zap.Logger,
) *SubmitJobUsecase {
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &SubmitJobUsecase{
		repo:      repo,
		dedup:     dedup,
		publisher: pub,
		window:    window,
		logger:    logger,
	}
}

// Execute validates the submission, creates a job and publishes it. An
// identical submission inside the dedup window returns the existing job and
// created=false.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, req *domain.SubmitRequest) (job *domain.Job, created bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	// Generate UUIDv7 (time-ordered)
	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("generate UUIDv7: %w", err)
	}
	id := jobID.String()

	fingerprint := req.Fingerprint()
	if uc.dedup != nil {
		holder, claimed, err := uc.dedup.Claim(ctx, fingerprint, id, uc.window)
		if err != nil {
			// Dedup is best effort.
			uc.logger.Warn("Submission dedup unavailable", zap.Error(err))
		} else if !claimed {
			return uc.existing(ctx, holder)
		}
	}

	job = &domain.Job{
		ID:       id,
		Kind:     req.Kind,
		UserID:   req.UserID,
		Status:   domain.StatusPending,
		Message:  "Job submitted and pending processing",
		Finetune: req.Finetune,
	}
	var content string
	if req.FAQ != nil {
		job.FAQ = &domain.FAQSpec{FileName: req.FAQ.FileName, FileSize: int64(len(req.FAQ.Content))}
		content = req.FAQ.Content
	}

	// Persist to PostgreSQL
	if err := uc.repo.Create(ctx, job, content); err != nil {
		uc.logger.Error("Failed to create job in database", zap.Error(err), zap.String("job_id", id))
		uc.release(ctx, fingerprint)
		return nil, false, fmt.Errorf("create job: %w", err)
	}

	// Publish to RabbitMQ
	if err := uc.publisher.Publish(ctx, &domain.QueuedJob{Job: *job, Content: content}); err != nil {
		uc.logger.Error("Failed to publish job to queue", zap.Error(err), zap.String("job_id", id))
		// The job will never be processed
		if _, terr := uc.repo.Transition(ctx, id, domain.StatusFailed, "Job could not be queued"); terr != nil {
			uc.logger.Error("Failed to mark unqueued job as failed", zap.Error(terr), zap.String("job_id", id))
		}
		uc.release(ctx, fingerprint)
		return nil, false, domain.ErrPublishFailed
	}

	metrics.JobsSubmittedTotal.WithLabelValues(string(job.Kind)).Inc()
	uc.logger.Info("Job submitted successfully",
		zap.String("job_id", id),
		zap.String("kind", string(job.Kind)),
		zap.String("user_id", job.UserID),
	)
	return job, true, nil
}

func (uc *SubmitJobUsecase) existing(ctx context.Context, holder string) (*domain.Job, bool, error) {
	job, err := uc.repo.GetByID(ctx, holder)
	if errors.Is(err, domain.ErrJobNotFound) {
		// The first request has claimed the fingerprint but not stored the job yet.
		return nil, false, fmt.Errorf("%w: identical submission in progress", domain.ErrInvalidState)
	}
	if err != nil {
		return nil, false, fmt.Errorf("load existing job: %w", err)
	}
	metrics.DuplicateSubmissionsTotal.Inc()
	uc.logger.Info("Duplicate submission collapsed", zap.String("job_id", holder))
	return job, false, nil
}

func (uc *SubmitJobUsecase) release(ctx context.Context, fingerprint string) {
	if uc.dedup == nil {
		return
	}
	if err := uc.dedup.Release(ctx, fingerprint); err != nil {
		uc.logger.Warn("Failed to release submission claim", zap.Error(err))
	}
}

package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/metrics"
	"github.com/Harsh-BH/jobdeck/internal/processor"
	"github.com/Harsh-BH/jobdeck/internal/repository"
)

// ProcessJobUsecase drives a queued job through its lifecycle on the worker.
type ProcessJobUsecase struct {
	repo      repository.JobRepository
	lock      repository.ProcessingLock
	processor processor.Processor
	logger    *zap.Logger
}

// NewProcessJobUsecase creates a new ProcessJobUsecase.
func NewProcessJobUsecase(
	repo repository.JobRepository,
	lock repository.ProcessingLock,
	proc processor.Processor,
	logger *zap.Logger,
) *ProcessJobUsecase {
	return &ProcessJobUsecase{
		repo:      repo,
		lock:      lock,
		processor: proc,
		logger:    logger,
	}
}

// Execute processes a single job: idempotency check, IN_PROGRESS, processing
// stages, then COMPLETED or FAILED. Returns (isDuplicate, error); an error
// means the delivery should not be acknowledged as handled.
func (uc *ProcessJobUsecase) Execute(ctx context.Context, job *domain.Job, content string) (bool, error) {
	log := uc.logger.With(zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)))

	// Step 1: Idempotency check
	acquired, err := uc.lock.AcquireLock(ctx, job.ID)
	if err != nil {
		log.Error("Failed to acquire idempotency lock", zap.Error(err))
		return false, err
	}
	if !acquired {
		log.Info("Duplicate message detected, skipping")
		return true, nil
	}
	defer func() {
		if err := uc.lock.ReleaseLock(context.WithoutCancel(ctx), job.ID); err != nil {
			log.Warn("Failed to release idempotency lock", zap.Error(err))
		}
	}()

	// Step 2: PENDING -> IN_PROGRESS
	if _, err := uc.repo.Transition(ctx, job.ID, domain.StatusInProgress, "Processing started"); err != nil {
		if abandoned(err) {
			log.Info("Job no longer pending, skipping", zap.Error(err))
			return false, nil
		}
		log.Error("Failed to update job status", zap.Error(err))
		return false, err
	}

	// Step 3: Run the stages; each checkpoint republishes progress and
	// notices cancellation.
	start := time.Now()
	checkpoint := func(ctx context.Context, message string) error {
		_, err := uc.repo.Transition(ctx, job.ID, domain.StatusInProgress, message)
		return err
	}
	artifact, err := uc.processor.Process(ctx, job, content, checkpoint)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
	case abandoned(err):
		log.Info("Job cancelled or deleted during processing")
		return false, nil
	case ctx.Err() != nil:
		// Shutting down; the delivery is requeued and the job picked up again.
		return false, err
	default:
		log.Warn("Job processing failed", zap.Error(err))
		if _, terr := uc.repo.Transition(ctx, job.ID, domain.StatusFailed, failureMessage(err)); terr != nil && !abandoned(terr) {
			log.Error("Failed to mark job as failed", zap.Error(terr))
			return false, terr
		}
		metrics.JobsFinishedTotal.WithLabelValues(string(job.Kind), string(domain.StatusFailed)).Inc()
		metrics.ProcessingDuration.WithLabelValues(string(job.Kind)).Observe(elapsed)
		return false, nil
	}

	// Step 4: Store the artifact and complete
	if _, err := uc.repo.Complete(ctx, job.ID, completionMessage(job.Kind), artifact); err != nil {
		if abandoned(err) {
			log.Info("Job cancelled before completion was stored")
			return false, nil
		}
		log.Error("Failed to store result", zap.Error(err))
		return false, err
	}

	metrics.JobsFinishedTotal.WithLabelValues(string(job.Kind), string(domain.StatusCompleted)).Inc()
	metrics.ProcessingDuration.WithLabelValues(string(job.Kind)).Observe(elapsed)
	log.Info("Job processed successfully",
		zap.String("result_ref", artifact.Ref),
		zap.Int("entries", len(artifact.Entries)),
		zap.Float64("seconds", elapsed),
	)
	return false, nil
}

// abandoned reports whether the job was cancelled or deleted underneath us.
func abandoned(err error) bool {
	return errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrJobNotFound)
}

func completionMessage(kind domain.Kind) string {
	if kind == domain.KindFinetune {
		return "Fine-tuning completed successfully"
	}
	return "FAQ extraction completed successfully"
}

func failureMessage(err error) string {
	if errors.Is(err, processor.ErrNoEntries) {
		return "No FAQ entries could be extracted from the document"
	}
	return "Processing failed: " + err.Error()
}

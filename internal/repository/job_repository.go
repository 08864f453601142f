package repository

import (
	"context"
	"time"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// JobRepository defines the interface for job persistence operations.
// Implementations must be safe for concurrent use.
type JobRepository interface {
	// Create inserts a new job together with its uploaded document, if any.
	Create(ctx context.Context, job *domain.Job, content string) error

	// GetByID retrieves a job by its ID.
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// List returns a user's jobs newest first, optionally filtered by status.
	List(ctx context.Context, userID string, status domain.Status) ([]*domain.Job, error)

	// Transition atomically moves a job to status. It returns
	// domain.ErrInvalidState when the current status has no such edge.
	Transition(ctx context.Context, id string, status domain.Status, message string) (*domain.Job, error)

	// Complete marks an in-progress job COMPLETED and stores its artifact.
	Complete(ctx context.Context, id string, message string, artifact *domain.Artifact) (*domain.Job, error)

	// GetResult returns the artifact of a completed job.
	GetResult(ctx context.Context, id string) (*domain.Artifact, error)

	// Delete removes a job and its artifact.
	Delete(ctx context.Context, id string) error
}

// SubmissionDeduper maps identical submissions inside a short window to the
// job created first.
type SubmissionDeduper interface {
	// Claim records jobID for fingerprint unless another job holds it.
	// It returns the holder's job ID and whether this call claimed it.
	Claim(ctx context.Context, fingerprint, jobID string, window time.Duration) (holder string, claimed bool, err error)

	// Release drops a claim, e.g. when creating the job failed.
	Release(ctx context.Context, fingerprint string) error
}

// ProcessingLock guards against two workers processing the same delivery.
type ProcessingLock interface {
	// AcquireLock returns true if the lock was acquired, false for a duplicate.
	AcquireLock(ctx context.Context, jobID string) (bool, error)

	// ReleaseLock lets the lock expire after processing.
	ReleaseLock(ctx context.Context, jobID string) error
}

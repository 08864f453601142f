// Package gateway defines how the client talks to the job backend.
package gateway

import (
	"context"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// Gateway is the remote job API as seen by the client. Every call may fail;
// callers do not retry.
type Gateway interface {
	// Submit creates a job and returns its initial snapshot.
	Submit(ctx context.Context, req domain.SubmitRequest) (domain.Job, error)

	// FetchStatus returns the current snapshot, domain.ErrJobNotFound for an
	// unknown ID, or domain.ErrUnavailable on transient failures.
	FetchStatus(ctx context.Context, id string) (domain.Job, error)

	// Cancel requests cancellation; domain.ErrInvalidState once terminal.
	Cancel(ctx context.Context, id string) (domain.Job, error)

	// FetchResult returns the artifact of a completed job,
	// domain.ErrResultNotReady before that.
	FetchResult(ctx context.Context, id string) (domain.Artifact, error)

	// List returns the user's jobs, optionally filtered by status.
	List(ctx context.Context, userID string, status domain.Status) ([]domain.Job, error)

	// Delete removes a job.
	Delete(ctx context.Context, id string) error
}

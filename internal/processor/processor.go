// Package processor runs the backend side of a job. Processing is simulated:
// each stage waits a fixed delay, as the reference backend only needs to
// drive jobs through their lifecycle.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/faq"
)

// ErrNoEntries is returned when an FAQ document contains no question/answer pairs.
var ErrNoEntries = errors.New("no FAQ entries found in document")

// Checkpoint is called before every stage with a progress message. A non-nil
// error (e.g. the job was cancelled) aborts processing.
type Checkpoint func(ctx context.Context, message string) error

// Processor turns a job into its artifact.
type Processor interface {
	Process(ctx context.Context, job *domain.Job, content string, checkpoint Checkpoint) (*domain.Artifact, error)
}

var _ Processor = (*Simulated)(nil)

// Simulated processes jobs by sleeping through named stages.
type Simulated struct {
	stageDelay time.Duration
	logger     *zap.Logger
}

// NewSimulated creates a processor whose stages take stageDelay each.
func NewSimulated(stageDelay time.Duration, logger *zap.Logger) *Simulated {
	return &Simulated{stageDelay: stageDelay, logger: logger}
}

func (s *Simulated) Process(ctx context.Context, job *domain.Job, content string, checkpoint Checkpoint) (*domain.Artifact, error) {
	switch job.Kind {
	case domain.KindFinetune:
		return s.finetune(ctx, job, checkpoint)
	case domain.KindFAQ:
		return s.extract(ctx, job, content, checkpoint)
	default:
		return nil, fmt.Errorf("unsupported job kind %q", job.Kind)
	}
}

func (s *Simulated) finetune(ctx context.Context, job *domain.Job, checkpoint Checkpoint) (*domain.Artifact, error) {
	if job.Finetune == nil {
		return nil, errors.New("fine-tuning job without a spec")
	}
	stages := []string{
		fmt.Sprintf("Preparing dataset from %d job(s)", len(job.Finetune.SourceJobIDs)),
		fmt.Sprintf("Fine-tuning %s (%s)", job.Finetune.Model, job.Finetune.Type),
		"Publishing model",
	}
	if err := s.runStages(ctx, job, stages, checkpoint); err != nil {
		return nil, err
	}
	return &domain.Artifact{
		JobID: job.ID,
		Kind:  domain.KindFinetune,
		Ref:   domain.ModelPath(job.Finetune, job.ID),
	}, nil
}

func (s *Simulated) extract(ctx context.Context, job *domain.Job, content string, checkpoint Checkpoint) (*domain.Artifact, error) {
	if err := s.runStages(ctx, job, []string{"Parsing document", "Extracting questions"}, checkpoint); err != nil {
		return nil, err
	}
	entries := faq.Extract(content)
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return &domain.Artifact{
		JobID:   job.ID,
		Kind:    domain.KindFAQ,
		Ref:     "/exports/" + domain.DatasetFileName(job.ID),
		Entries: entries,
	}, nil
}

func (s *Simulated) runStages(ctx context.Context, job *domain.Job, stages []string, checkpoint Checkpoint) error {
	for _, stage := range stages {
		if err := checkpoint(ctx, stage); err != nil {
			return err
		}
		s.logger.Debug("Processing stage", zap.String("job_id", job.ID), zap.String("stage", stage))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.stageDelay):
		}
	}
	return nil
}

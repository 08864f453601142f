package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/processor"
	"github.com/Harsh-BH/jobdeck/internal/repository/mock"
	"github.com/Harsh-BH/jobdeck/internal/usecase"
)

type processorFunc func(ctx context.Context, job *domain.Job, content string, checkpoint processor.Checkpoint) (*domain.Artifact, error)

func (f processorFunc) Process(ctx context.Context, job *domain.Job, content string, checkpoint processor.Checkpoint) (*domain.Artifact, error) {
	return f(ctx, job, content, checkpoint)
}

func seedPendingJob(t *testing.T, repo *mock.MockJobRepository, kind domain.Kind) *domain.Job {
	t.Helper()
	job := &domain.Job{ID: "job-" + string(kind), Kind: kind, UserID: "guest_user", Status: domain.StatusPending}
	if kind == domain.KindFinetune {
		job.Finetune = &domain.FinetuneSpec{SourceJobIDs: []string{"a"}, Model: "llama", Type: domain.FinetuneQA}
	}
	if err := repo.Create(context.Background(), job, "## S\nQ: one?\nA: yes"); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

// Test: a FAQ job runs through the simulated stages and completes with entries.
func TestProcess_Success_FAQ(t *testing.T) {
	repo := mock.NewMockJobRepository()
	lock := &mock.ProcessingLock{}
	uc := usecase.NewProcessJobUsecase(repo, lock, processor.NewSimulated(0, zap.NewNop()), zap.NewNop())
	job := seedPendingJob(t, repo, domain.KindFAQ)

	isDup, err := uc.Execute(context.Background(), job, repo.Content(job.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isDup {
		t.Fatal("expected not duplicate")
	}

	stored, _ := repo.GetByID(context.Background(), job.ID)
	if stored.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", stored.Status)
	}
	art, err := repo.GetResult(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("expected result: %v", err)
	}
	if len(art.Entries) != 1 || art.Entries[0].Question != "one?" {
		t.Errorf("unexpected entries: %+v", art.Entries)
	}

	// IN_PROGRESS, two stage messages, COMPLETED.
	if len(repo.Transitions) != 4 {
		t.Errorf("expected 4 transitions, got %d", len(repo.Transitions))
	}
	if len(lock.AcquireCalls) != 1 || len(lock.ReleaseCalls) != 1 {
		t.Errorf("expected lock acquired and released once, got %d/%d", len(lock.AcquireCalls), len(lock.ReleaseCalls))
	}
}

// Test: a fine-tuning job publishes its model path.
func TestProcess_Success_Finetune(t *testing.T) {
	repo := mock.NewMockJobRepository()
	uc := usecase.NewProcessJobUsecase(repo, &mock.ProcessingLock{}, processor.NewSimulated(0, zap.NewNop()), zap.NewNop())
	job := seedPendingJob(t, repo, domain.KindFinetune)

	if _, err := uc.Execute(context.Background(), job, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), job.ID)
	if stored.ResultRef != "/models/llama-qa-job-finetune" {
		t.Errorf("unexpected result ref %q", stored.ResultRef)
	}
}

// Test: duplicate message is skipped when the lock is already held.
func TestProcess_Duplicate(t *testing.T) {
	repo := mock.NewMockJobRepository()
	lock := &mock.ProcessingLock{
		AcquireLockFn: func(ctx context.Context, jobID string) (bool, error) { return false, nil },
	}
	uc := usecase.NewProcessJobUsecase(repo, lock, processor.NewSimulated(0, zap.NewNop()), zap.NewNop())
	job := seedPendingJob(t, repo, domain.KindFAQ)

	isDup, err := uc.Execute(context.Background(), job, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isDup {
		t.Fatal("expected duplicate")
	}
	if len(repo.Transitions) != 0 {
		t.Errorf("expected no transitions, got %d", len(repo.Transitions))
	}
}

// Test: lock errors are returned so the delivery is not acknowledged.
func TestProcess_LockError(t *testing.T) {
	repo := mock.NewMockJobRepository()
	lock := &mock.ProcessingLock{
		AcquireLockFn: func(ctx context.Context, jobID string) (bool, error) { return false, errors.New("redis down") },
	}
	uc := usecase.NewProcessJobUsecase(repo, lock, processor.NewSimulated(0, zap.NewNop()), zap.NewNop())

	if _, err := uc.Execute(context.Background(), seedPendingJob(t, repo, domain.KindFAQ), ""); err == nil {
		t.Fatal("expected error")
	}
}

// Test: a job cancelled before the worker picks it up is skipped.
func TestProcess_CancelledBeforeStart(t *testing.T) {
	repo := mock.NewMockJobRepository()
	uc := usecase.NewProcessJobUsecase(repo, &mock.ProcessingLock{}, processor.NewSimulated(0, zap.NewNop()), zap.NewNop())
	job := seedPendingJob(t, repo, domain.KindFAQ)
	if _, err := repo.Transition(context.Background(), job.ID, domain.StatusCancelled, "cancelled"); err != nil {
		t.Fatal(err)
	}

	if _, err := uc.Execute(context.Background(), job, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), job.ID)
	if stored.Status != domain.StatusCancelled {
		t.Errorf("expected CANCELLED to stick, got %s", stored.Status)
	}
}

// Test: cancelling mid-run stops processing at the next checkpoint.
func TestProcess_CancelledDuringProcessing(t *testing.T) {
	repo := mock.NewMockJobRepository()
	proc := processorFunc(func(ctx context.Context, job *domain.Job, content string, checkpoint processor.Checkpoint) (*domain.Artifact, error) {
		if _, err := repo.Transition(ctx, job.ID, domain.StatusCancelled, "Job cancelled by user"); err != nil {
			t.Fatal(err)
		}
		if err := checkpoint(ctx, "next stage"); err != nil {
			return nil, err
		}
		t.Fatal("checkpoint should have failed")
		return nil, nil
	})
	uc := usecase.NewProcessJobUsecase(repo, &mock.ProcessingLock{}, proc, zap.NewNop())
	job := seedPendingJob(t, repo, domain.KindFAQ)

	if _, err := uc.Execute(context.Background(), job, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), job.ID)
	if stored.Status != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", stored.Status)
	}
}

// Test: a processing failure is recorded as FAILED and acknowledged.
func TestProcess_Failure(t *testing.T) {
	repo := mock.NewMockJobRepository()
	uc := usecase.NewProcessJobUsecase(repo, &mock.ProcessingLock{}, processor.NewSimulated(0, zap.NewNop()), zap.NewNop())
	job := seedPendingJob(t, repo, domain.KindFAQ)

	if _, err := uc.Execute(context.Background(), job, "no questions in here"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), job.ID)
	if stored.Status != domain.StatusFailed {
		t.Fatalf("expected FAILED, got %s", stored.Status)
	}
	if stored.Message != "No FAQ entries could be extracted from the document" {
		t.Errorf("unexpected message %q", stored.Message)
	}
}

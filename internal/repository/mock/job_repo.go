package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/repository"
)

// Ensure MockJobRepository implements repository.JobRepository.
var _ repository.JobRepository = (*MockJobRepository)(nil)

type record struct {
	job      domain.Job
	content  string
	artifact *domain.Artifact
}

// MockJobRepository is an in-memory job repository for tests. It enforces the
// same transition rules as the PostgreSQL implementation.
type MockJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*record

	// Hook functions for injecting errors
	CreateFunc     func(ctx context.Context, job *domain.Job, content string) error
	GetByIDFunc    func(ctx context.Context, id string) (*domain.Job, error)
	TransitionFunc func(ctx context.Context, id string, status domain.Status, message string) (*domain.Job, error)

	// Recorded transitions for assertions.
	Transitions []Transition
}

// Transition is one recorded status change attempt.
type Transition struct {
	ID      string
	Status  domain.Status
	Message string
}

// NewMockJobRepository creates a new mock repository.
func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		jobs: make(map[string]*record),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job, content string) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, job, content)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("mock: duplicate job id %s", job.ID)
	}
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	m.jobs[job.ID] = &record{job: *job, content: content}
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	job := rec.job
	return &job, nil
}

func (m *MockJobRepository) List(ctx context.Context, userID string, status domain.Status) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Job
	for _, rec := range m.jobs {
		if rec.job.UserID != userID || (status != "" && rec.job.Status != status) {
			continue
		}
		job := rec.job
		out = append(out, &job)
	}
	slices.SortFunc(out, func(a, b *domain.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MockJobRepository) Transition(ctx context.Context, id string, status domain.Status, message string) (*domain.Job, error) {
	m.mu.Lock()
	m.Transitions = append(m.Transitions, Transition{ID: id, Status: status, Message: message})
	m.mu.Unlock()
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, id, status, message)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.transitionLocked(id, status)
	if err != nil {
		return nil, err
	}
	rec.job.Message = message
	job := rec.job
	return &job, nil
}

func (m *MockJobRepository) Complete(ctx context.Context, id string, message string, artifact *domain.Artifact) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transitions = append(m.Transitions, Transition{ID: id, Status: domain.StatusCompleted, Message: message})

	rec, err := m.transitionLocked(id, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	rec.job.Message = message
	rec.job.ResultRef = artifact.Ref
	rec.artifact = artifact
	job := rec.job
	return &job, nil
}

func (m *MockJobRepository) GetResult(ctx context.Context, id string) (*domain.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if rec.job.Status != domain.StatusCompleted || rec.artifact == nil {
		return nil, domain.ErrResultNotReady
	}
	art := *rec.artifact
	return &art, nil
}

func (m *MockJobRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

// Content returns the uploaded document stored with a job.
func (m *MockJobRepository) Content(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.jobs[id]; ok {
		return rec.content
	}
	return ""
}

// GetAll returns all stored jobs (for test assertions).
func (m *MockJobRepository) GetAll() []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Job, 0, len(m.jobs))
	for _, rec := range m.jobs {
		job := rec.job
		result = append(result, &job)
	}
	return result
}

func (m *MockJobRepository) transitionLocked(id string, status domain.Status) (*record, error) {
	rec, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if !rec.job.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, rec.job.Status, status)
	}
	rec.job.Status = status
	rec.job.UpdatedAt = time.Now().UTC()
	return rec, nil
}

package mock

import (
	"context"
	"sync"
	"time"

	"github.com/Harsh-BH/jobdeck/internal/repository"
)

// ---- SubmissionDeduper mock ----

var _ repository.SubmissionDeduper = (*SubmissionDeduper)(nil)

// SubmissionDeduper is an in-memory repository.SubmissionDeduper driven by Now.
type SubmissionDeduper struct {
	mu     sync.Mutex
	claims map[string]claim

	Now     func() time.Time
	ClaimFn func(ctx context.Context, fingerprint, jobID string, window time.Duration) (string, bool, error)

	ReleaseCalls []string
}

type claim struct {
	jobID   string
	expires time.Time
}

func (m *SubmissionDeduper) Claim(ctx context.Context, fingerprint, jobID string, window time.Duration) (string, bool, error) {
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, fingerprint, jobID, window)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims == nil {
		m.claims = make(map[string]claim)
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	if c, ok := m.claims[fingerprint]; ok && now.Before(c.expires) {
		return c.jobID, false, nil
	}
	m.claims[fingerprint] = claim{jobID: jobID, expires: now.Add(window)}
	return jobID, true, nil
}

func (m *SubmissionDeduper) Release(ctx context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls = append(m.ReleaseCalls, fingerprint)
	delete(m.claims, fingerprint)
	return nil
}

// ---- ProcessingLock mock ----

var _ repository.ProcessingLock = (*ProcessingLock)(nil)

// ProcessingLock is a test double for repository.ProcessingLock.
type ProcessingLock struct {
	mu sync.Mutex

	AcquireLockFn func(ctx context.Context, jobID string) (bool, error)
	ReleaseLockFn func(ctx context.Context, jobID string) error

	AcquireCalls []string
	ReleaseCalls []string
}

func (m *ProcessingLock) AcquireLock(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	m.AcquireCalls = append(m.AcquireCalls, jobID)
	m.mu.Unlock()
	if m.AcquireLockFn != nil {
		return m.AcquireLockFn(ctx, jobID)
	}
	return true, nil // default: lock acquired
}

func (m *ProcessingLock) ReleaseLock(ctx context.Context, jobID string) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, jobID)
	m.mu.Unlock()
	if m.ReleaseLockFn != nil {
		return m.ReleaseLockFn(ctx, jobID)
	}
	return nil
}

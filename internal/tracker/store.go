// Package tracker keeps the client's view of remote jobs in sync with the
// backend: an observable job store and the poll scheduler that feeds it.
package tracker

import (
	"cmp"
	"iter"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// Observer is called after every applied store mutation.
// Observers run synchronously on the mutating goroutine and may read the
// store, but must not mutate it.
type Observer func()

// Store holds the canonical client-side copy of all known jobs.
type Store struct {
	// writeMu serializes mutation + notification so observers never see a
	// half-applied update or notifications out of mutation order.
	writeMu sync.Mutex

	mu        sync.RWMutex
	jobs      map[string]domain.Job
	observers map[int]Observer
	nextObsID int

	logger *zap.Logger
}

// NewStore creates an empty job store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		jobs:      make(map[string]domain.Job),
		observers: make(map[int]Observer),
		logger:    logger,
	}
}

// Subscribe registers an observer and returns a func that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Upsert inserts or replaces a job by ID. It returns false, without notifying,
// when the snapshot is older than the stored one or its status cannot follow
// the stored status.
func (s *Store) Upsert(job domain.Job) bool {
	return s.put(job, false)
}

// Refresh is Upsert restricted to jobs already in the store. A snapshot for a
// job removed while its request was in flight is dropped.
func (s *Store) Refresh(job domain.Job) bool {
	return s.put(job, true)
}

func (s *Store) put(job domain.Job, mustExist bool) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	current, exists := s.jobs[job.ID]
	if !exists && mustExist {
		s.mu.Unlock()
		s.logger.Debug("Dropping snapshot for removed job", zap.String("job_id", job.ID))
		return false
	}
	if exists {
		if job.UpdatedAt.Before(current.UpdatedAt) {
			s.mu.Unlock()
			s.logger.Debug("Dropping stale job snapshot",
				zap.String("job_id", job.ID),
				zap.Time("stored_updated_at", current.UpdatedAt),
				zap.Time("incoming_updated_at", job.UpdatedAt),
			)
			return false
		}
		if !current.Status.CanReach(job.Status) {
			s.mu.Unlock()
			s.logger.Warn("Refusing illegal status transition",
				zap.String("job_id", job.ID),
				zap.String("stored_status", string(current.Status)),
				zap.String("incoming_status", string(job.Status)),
			)
			return false
		}
	}
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.notify()
	return true
}

// Remove deletes a job. Removing an unknown ID is a no-op.
func (s *Store) Remove(id string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	_, exists := s.jobs[id]
	delete(s.jobs, id)
	s.mu.Unlock()

	if exists {
		s.notify()
	}
}

// Get returns the job or domain.ErrJobNotFound.
func (s *Store) Get(id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

// List returns jobs matching any of the given statuses (all jobs when none
// are given), newest first. The sequence snapshots the store each time it is
// ranged over, so it can be iterated repeatedly.
func (s *Store) List(statuses ...domain.Status) iter.Seq[domain.Job] {
	return func(yield func(domain.Job) bool) {
		for _, job := range s.sorted(statuses) {
			if !yield(job) {
				return
			}
		}
	}
}

// Snapshot returns all jobs newest first.
func (s *Store) Snapshot() []domain.Job {
	return s.sorted(nil)
}

// Load replaces the store content, e.g. with jobs restored from local state.
func (s *Store) Load(jobs []domain.Job) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.jobs = make(map[string]domain.Job, len(jobs))
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	s.mu.Unlock()

	s.notify()
}

// Len returns the number of stored jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) sorted(statuses []domain.Status) []domain.Job {
	s.mu.RLock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if len(statuses) == 0 || slices.Contains(statuses, j.Status) {
			out = append(out, j)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) notify() {
	s.mu.RLock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Observer, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

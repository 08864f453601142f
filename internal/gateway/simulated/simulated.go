// Package simulated provides an in-process job backend. It advances jobs on
// status requests instead of timers, so demo mode and tests are deterministic.
package simulated

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/faq"
	"github.com/Harsh-BH/jobdeck/internal/gateway"
)

var _ gateway.Gateway = (*Gateway)(nil)

// Step is one scripted FetchStatus outcome.
type Step struct {
	Status    domain.Status
	Message   string
	ResultRef string
	Err       error
}

type simJob struct {
	job     domain.Job
	content string
	fetches int
	script  []Step
}

// Gateway is a fake backend. Unscripted jobs move one status forward every
// AdvanceEvery status requests: PENDING -> IN_PROGRESS -> COMPLETED.
type Gateway struct {
	mu   sync.Mutex
	jobs map[string]*simJob

	advanceEvery int
	now          func() time.Time
	newID        func() string

	submissions int
	fetches     int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithAdvanceEvery sets how many status requests a job stays in each active status.
func WithAdvanceEvery(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.advanceEvery = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithIDs makes Submit hand out the given IDs in order before falling back to UUIDs.
func WithIDs(ids ...string) Option {
	return func(g *Gateway) {
		next := uuid.NewString
		g.newID = func() string {
			if len(ids) == 0 {
				return next()
			}
			id := ids[0]
			ids = ids[1:]
			return id
		}
	}
}

// New creates a simulated backend.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		jobs:         make(map[string]*simJob),
		advanceEvery: 1,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Script makes the next FetchStatus calls for id return steps in order.
// After the script runs out the job keeps its last state.
func (g *Gateway) Script(id string, steps ...Step) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sj, ok := g.jobs[id]; ok {
		sj.script = append(sj.script, steps...)
	}
}

// Submissions returns how many jobs were accepted.
func (g *Gateway) Submissions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submissions
}

// Fetches returns how many status requests were served.
func (g *Gateway) Fetches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

// Seed inserts a job as if it had been submitted earlier.
func (g *Gateway) Seed(job domain.Job) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jobs[job.ID] = &simJob{job: job}
}

func (g *Gateway) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Job, error) {
	if err := req.Validate(); err != nil {
		return domain.Job{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	job := domain.Job{
		ID:        g.newID(),
		Kind:      req.Kind,
		UserID:    req.UserID,
		Status:    domain.StatusPending,
		Message:   "Job submitted and pending processing",
		CreatedAt: now,
		UpdatedAt: now,
		Finetune:  req.Finetune,
	}
	sj := &simJob{job: job}
	if req.FAQ != nil {
		sj.job.FAQ = &domain.FAQSpec{FileName: req.FAQ.FileName, FileSize: int64(len(req.FAQ.Content))}
		sj.content = req.FAQ.Content
	}
	g.jobs[job.ID] = sj
	g.submissions++
	return sj.job, nil
}

func (g *Gateway) FetchStatus(ctx context.Context, id string) (domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return domain.Job{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.fetches++
	sj, ok := g.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}

	if len(sj.script) > 0 {
		step := sj.script[0]
		sj.script = sj.script[1:]
		if step.Err != nil {
			return domain.Job{}, step.Err
		}
		g.setLocked(sj, step.Status, step.Message)
		if step.ResultRef != "" {
			sj.job.ResultRef = step.ResultRef
		}
		return sj.job, nil
	}

	sj.fetches++
	if sj.job.Status.IsActive() && sj.fetches%g.advanceEvery == 0 {
		g.advanceLocked(sj)
	}
	return sj.job, nil
}

func (g *Gateway) Cancel(ctx context.Context, id string) (domain.Job, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sj, ok := g.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if sj.job.Status.IsTerminal() {
		return domain.Job{}, fmt.Errorf("%w: cannot cancel job with status %s", domain.ErrInvalidState, sj.job.Status)
	}
	g.setLocked(sj, domain.StatusCancelled, "Job cancelled by user")
	sj.script = nil
	return sj.job, nil
}

func (g *Gateway) FetchResult(ctx context.Context, id string) (domain.Artifact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sj, ok := g.jobs[id]
	if !ok {
		return domain.Artifact{}, domain.ErrJobNotFound
	}
	if sj.job.Status != domain.StatusCompleted {
		return domain.Artifact{}, domain.ErrResultNotReady
	}
	art := domain.Artifact{JobID: id, Kind: sj.job.Kind, Ref: sj.job.ResultRef}
	if sj.job.Kind == domain.KindFAQ {
		art.Entries = faq.Extract(sj.content)
	}
	return art, nil
}

func (g *Gateway) List(ctx context.Context, userID string, status domain.Status) ([]domain.Job, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []domain.Job
	for _, sj := range g.jobs {
		if sj.job.UserID != userID {
			continue
		}
		if status != "" && sj.job.Status != status {
			continue
		}
		out = append(out, sj.job)
	}
	slices.SortFunc(out, func(a, b domain.Job) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (g *Gateway) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(g.jobs, id)
	return nil
}

func (g *Gateway) advanceLocked(sj *simJob) {
	switch sj.job.Status {
	case domain.StatusPending:
		msg := "Processing document"
		if sj.job.Kind == domain.KindFinetune {
			msg = "Fine-tuning in progress"
		}
		g.setLocked(sj, domain.StatusInProgress, msg)
	case domain.StatusInProgress:
		msg := "FAQ extraction completed successfully"
		ref := "/exports/" + domain.DatasetFileName(sj.job.ID)
		if sj.job.Finetune != nil {
			msg = "Fine-tuning completed successfully"
			ref = domain.ModelPath(sj.job.Finetune, sj.job.ID)
		}
		g.setLocked(sj, domain.StatusCompleted, msg)
		sj.job.ResultRef = ref
	}
}

func (g *Gateway) setLocked(sj *simJob, status domain.Status, message string) {
	sj.job.Status = status
	sj.job.Message = message
	if now := g.now(); now.After(sj.job.UpdatedAt) {
		sj.job.UpdatedAt = now
	}
}

// Package view renders the job store for the operator and turns operator
// intents into gateway and poller calls.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/gateway"
	"github.com/Harsh-BH/jobdeck/internal/tracker"
)

const (
	// DefaultDebounceWindow is how long an identical submission is treated as a repeat.
	DefaultDebounceWindow = time.Second

	detailSubscriber = "detail"
	clearScreen      = "\033[H\033[2J"
)

// Watcher is the part of the poller the binder drives.
type Watcher interface {
	Watch(subscriber, id string) error
	Unwatch(id string)
	UnwatchSubscriber(subscriber string)
}

// Persister saves the job list after every change.
type Persister interface {
	SaveJobs(ctx context.Context, jobs []domain.Job) error
}

// Config holds the binder's collaborators and options.
type Config struct {
	Store     *tracker.Store
	Gateway   gateway.Gateway
	Watcher   Watcher
	Persister Persister // optional
	User      domain.User

	// Out receives a full frame on every store change; nil disables live rendering.
	Out            io.Writer
	ClearScreen    bool
	DebounceWindow time.Duration
	Now            func() time.Time
}

type lastSubmission struct {
	fingerprint string
	at          time.Time
	job         domain.Job
}

// Binder keeps a rendered view in sync with the store.
type Binder struct {
	store     *tracker.Store
	gw        gateway.Gateway
	watcher   Watcher
	persister Persister
	out       io.Writer
	clear     bool
	debounce  time.Duration
	now       func() time.Time
	logger    *zap.Logger

	// submitMu serializes submissions so the duplicate check sees the
	// outcome of any submission still in flight.
	submitMu sync.Mutex
	last     lastSubmission

	mu       sync.Mutex
	user     domain.User
	filter   domain.Status
	detailID string

	outMu       sync.Mutex
	unsubscribe func()
}

// NewBinder creates a Binder and subscribes it to the store.
func NewBinder(cfg Config, logger *zap.Logger) *Binder {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.User.ID == "" {
		cfg.User = domain.GuestUser()
	}
	b := &Binder{
		store:     cfg.Store,
		gw:        cfg.Gateway,
		watcher:   cfg.Watcher,
		persister: cfg.Persister,
		out:       cfg.Out,
		clear:     cfg.ClearScreen,
		debounce:  cfg.DebounceWindow,
		now:       cfg.Now,
		logger:    logger,
		user:      cfg.User,
	}
	b.unsubscribe = cfg.Store.Subscribe(b.onStoreChange)
	return b
}

// Close detaches the binder from the store and stops its detail watch.
func (b *Binder) Close() {
	b.unsubscribe()
	b.watcher.UnwatchSubscriber(detailSubscriber)
}

// Render returns the current frame. It depends only on store and view state,
// so calling it repeatedly without changes yields identical output.
func (b *Binder) Render() string {
	b.mu.Lock()
	f := frame{user: b.user, filter: b.filter, now: b.now()}
	detailID := b.detailID
	b.mu.Unlock()

	var filters []domain.Status
	if f.filter != "" {
		filters = append(filters, f.filter)
	}
	f.jobs = slices.Collect(b.store.List(filters...))
	if detailID != "" {
		if j, err := b.store.Get(detailID); err == nil {
			f.detail = &j
		}
	}
	return f.String()
}

// Submit validates req, guards against duplicates, submits it and opens the
// job's detail view. An identical request inside the debounce window returns
// the job created by the first one.
func (b *Binder) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Job, error) {
	if req.UserID == "" {
		req.UserID = b.User().ID
	}
	if err := req.Validate(); err != nil {
		return domain.Job{}, err
	}

	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	fp := req.Fingerprint()
	now := b.now()
	if b.last.fingerprint == fp && now.Sub(b.last.at) < b.debounce {
		b.logger.Info("Ignoring duplicate submission", zap.String("job_id", b.last.job.ID))
		return b.last.job, nil
	}

	job, err := b.gw.Submit(ctx, req)
	if err != nil {
		return domain.Job{}, fmt.Errorf("submit %s job: %w", req.Kind, err)
	}
	b.last = lastSubmission{fingerprint: fp, at: now, job: job}

	b.store.Upsert(job)
	if err := b.ViewDetails(job.ID); err != nil {
		return job, err
	}
	return job, nil
}

// ViewDetails opens the detail panel for id and polls it while it is active.
func (b *Binder) ViewDetails(id string) error {
	if _, err := b.store.Get(id); err != nil {
		return err
	}
	b.mu.Lock()
	b.detailID = id
	b.mu.Unlock()

	err := b.watcher.Watch(detailSubscriber, id)
	b.refresh()
	return err
}

// CloseDetails closes the detail panel and stops its polling.
func (b *Binder) CloseDetails() {
	b.mu.Lock()
	b.detailID = ""
	b.mu.Unlock()

	b.watcher.UnwatchSubscriber(detailSubscriber)
	b.refresh()
}

// DetailID returns the job shown in the detail panel, if any.
func (b *Binder) DetailID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detailID
}

// Cancel asks the backend to cancel id. On failure the store is left untouched.
func (b *Binder) Cancel(ctx context.Context, id string) (domain.Job, error) {
	job, err := b.gw.Cancel(ctx, id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("cancel job %s: %w", id, err)
	}
	b.watcher.Unwatch(id)
	b.store.Upsert(job)
	return job, nil
}

// Download fetches the artifact of a completed job.
func (b *Binder) Download(ctx context.Context, id string) (domain.Artifact, error) {
	job, err := b.store.Get(id)
	if err != nil {
		return domain.Artifact{}, err
	}
	if job.Status != domain.StatusCompleted {
		return domain.Artifact{}, domain.ErrResultNotReady
	}
	art, err := b.gw.FetchResult(ctx, id)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("download job %s: %w", id, err)
	}
	return art, nil
}

// Delete removes id from the backend and the store. A job the backend no
// longer knows is still removed locally.
func (b *Binder) Delete(ctx context.Context, id string) error {
	if err := b.gw.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	b.watcher.Unwatch(id)

	b.mu.Lock()
	if b.detailID == id {
		b.detailID = ""
	}
	b.mu.Unlock()

	b.store.Remove(id)
	return nil
}

// SetFilter restricts the table to one status; "" shows everything.
func (b *Binder) SetFilter(status domain.Status) {
	b.mu.Lock()
	b.filter = status
	b.mu.Unlock()
	b.refresh()
}

// SetUser switches the operator identity used for new submissions.
func (b *Binder) SetUser(u domain.User) {
	b.mu.Lock()
	b.user = u
	b.mu.Unlock()
	b.refresh()
}

// User returns the current operator.
func (b *Binder) User() domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user
}

// Sync merges the backend's job list for the current user into the store.
func (b *Binder) Sync(ctx context.Context) error {
	jobs, err := b.gw.List(ctx, b.User().ID, "")
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	for _, j := range jobs {
		b.store.Upsert(j)
	}
	return nil
}

// onStoreChange runs on the store's mutating goroutine, sometimes with the
// poller's lock held. It may read the store but must not mutate it or call
// the poller.
func (b *Binder) onStoreChange() {
	if b.persister != nil {
		if err := b.persister.SaveJobs(context.Background(), b.store.Snapshot()); err != nil {
			b.logger.Error("Failed to persist jobs", zap.Error(err))
		}
	}
	b.refresh()
}

func (b *Binder) refresh() {
	if b.out == nil {
		return
	}
	frame := b.Render()
	if b.clear {
		frame = clearScreen + frame
	}
	b.outMu.Lock()
	defer b.outMu.Unlock()
	if _, err := io.WriteString(b.out, frame); err != nil {
		b.logger.Debug("Failed to write frame", zap.Error(err))
	}
}

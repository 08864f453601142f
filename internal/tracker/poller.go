package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/metrics"
)

const (
	DefaultDetailInterval = time.Second
	DefaultBulkInterval   = time.Minute
)

// ErrPollerClosed is returned by Watch after Close.
var ErrPollerClosed = errors.New("poller closed")

// StatusFetcher is the part of the gateway the poller needs.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, id string) (domain.Job, error)
}

// PollerConfig holds the poll cadence.
type PollerConfig struct {
	DetailInterval time.Duration
	BulkInterval   time.Duration
	// RequestTimeout bounds each status request; zero means no extra bound.
	RequestTimeout time.Duration
}

type watch struct {
	jobID      string
	subscriber string
	cancel     context.CancelFunc
}

// Poller polls watched jobs on a fixed period and feeds snapshots into the
// Store. Failed requests stop the job's loop; nothing is retried.
type Poller struct {
	fetcher  StatusFetcher
	store    *Store
	notifier Notifier
	cfg      PollerConfig
	logger   *zap.Logger

	mu        sync.Mutex
	watches   map[string]*watch // job ID -> active watch
	subs      map[string]string // subscriber -> job ID
	announced map[string]bool   // job IDs whose terminal event was emitted
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a Poller. Call Close to stop all timers.
func NewPoller(fetcher StatusFetcher, store *Store, notifier Notifier, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.DetailInterval <= 0 {
		cfg.DetailInterval = DefaultDetailInterval
	}
	if cfg.BulkInterval <= 0 {
		cfg.BulkInterval = DefaultBulkInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		fetcher:   fetcher,
		store:     store,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		watches:   make(map[string]*watch),
		subs:      make(map[string]string),
		announced: make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Watch starts polling id on behalf of subscriber. Any previous watch held by
// the same subscriber, and any other watch on the same job, is cancelled
// first. Watching a job already known to be finished does nothing.
func (p *Poller) Watch(subscriber, id string) error {
	if job, err := p.store.Get(id); err == nil && job.Status.IsTerminal() {
		p.logger.Debug("Job already finished, not polling", zap.String("job_id", id))
		p.UnwatchSubscriber(subscriber)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPollerClosed
	}
	if prev, ok := p.subs[subscriber]; ok {
		p.stopLocked(prev)
	}
	p.stopLocked(id)

	ctx, cancel := context.WithCancel(p.ctx)
	w := &watch{jobID: id, subscriber: subscriber, cancel: cancel}
	p.watches[id] = w
	p.subs[subscriber] = id
	metrics.ActiveWatches.Set(float64(len(p.watches)))

	p.wg.Add(1)
	go p.run(ctx, w)

	p.logger.Debug("Watching job",
		zap.String("job_id", id),
		zap.String("subscriber", subscriber),
		zap.Duration("interval", p.cfg.DetailInterval),
	)
	return nil
}

// Unwatch stops polling id. It is safe to call when no watch is active.
func (p *Poller) Unwatch(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(id)
}

// UnwatchSubscriber stops whatever subscriber is watching.
func (p *Poller) UnwatchSubscriber(subscriber string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.subs[subscriber]; ok {
		p.stopLocked(id)
	}
}

// Watching reports whether id has an active timer.
func (p *Poller) Watching(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watches[id]
	return ok
}

// ActiveWatches returns the number of running timers.
func (p *Poller) ActiveWatches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}

// Close stops every timer and waits for the polling goroutines to exit.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for id := range p.watches {
		p.stopLocked(id)
	}
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
}

// RefreshActive fetches the status of every active job in the store once.
// One job's failure does not stop the others; all failures are returned joined.
func (p *Poller) RefreshActive(ctx context.Context) error {
	var errs []error
	for job := range p.store.List(domain.StatusPending, domain.StatusInProgress) {
		snap, err := p.fetch(ctx, job.ID)
		if err != nil {
			metrics.PollRequestsTotal.WithLabelValues("bulk", "error").Inc()
			if _, gone := p.store.Get(job.ID); gone != nil {
				continue
			}
			p.notifier.Notify(Event{Kind: EventPollError, JobID: job.ID, Err: err})
			errs = append(errs, err)
			continue
		}
		metrics.PollRequestsTotal.WithLabelValues("bulk", "ok").Inc()
		p.apply(snap)
	}
	return errors.Join(errs...)
}

// RunBulkRefresh calls RefreshActive every BulkInterval until ctx is done.
func (p *Poller) RunBulkRefresh(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.BulkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.RefreshActive(ctx); err != nil {
				p.logger.Warn("Bulk refresh finished with errors", zap.Error(err))
			}
		}
	}
}

func (p *Poller) run(ctx context.Context, w *watch) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.DetailInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := p.tick(ctx, w); done {
				return
			}
		}
	}
}

// tick performs one status request and reports whether the watch is over.
func (p *Poller) tick(ctx context.Context, w *watch) bool {
	job, err := p.fetch(ctx, w.jobID)

	p.mu.Lock()
	if p.watches[w.jobID] != w {
		p.mu.Unlock()
		p.logger.Debug("Dropping response for cancelled watch", zap.String("job_id", w.jobID))
		return true
	}
	if err != nil {
		p.stopLocked(w.jobID)
		p.mu.Unlock()
		metrics.PollRequestsTotal.WithLabelValues("detail", "error").Inc()
		p.notifier.Notify(Event{Kind: EventPollError, JobID: w.jobID, Err: err})
		return true
	}
	metrics.PollRequestsTotal.WithLabelValues("detail", "ok").Inc()

	// Applied while holding mu so Unwatch cannot interleave between the
	// liveness check above and the store write.
	event, finished := p.applyLocked(job)
	if finished {
		p.stopLocked(w.jobID)
	}
	p.mu.Unlock()

	if event != nil {
		p.notifier.Notify(*event)
	}
	return finished
}

// apply records a bulk refresh result. Jobs removed from the store while the
// request was in flight stay removed.
func (p *Poller) apply(job domain.Job) {
	p.mu.Lock()
	if !p.store.Refresh(job) {
		p.mu.Unlock()
		return
	}
	event, _ := p.announceLocked(job.ID)
	p.mu.Unlock()

	if event != nil {
		p.notifier.Notify(*event)
	}
}

// applyLocked upserts job and returns the terminal event to emit, if this is
// the first time the job was seen finished.
func (p *Poller) applyLocked(job domain.Job) (*Event, bool) {
	p.store.Upsert(job)
	return p.announceLocked(job.ID)
}

func (p *Poller) announceLocked(id string) (*Event, bool) {
	stored, err := p.store.Get(id)
	if err != nil || !stored.Status.IsTerminal() {
		return nil, false
	}
	if p.announced[id] {
		return nil, true
	}
	p.announced[id] = true
	e := terminalEvent(stored)
	return &e, true
}

func (p *Poller) fetch(ctx context.Context, id string) (domain.Job, error) {
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}
	return p.fetcher.FetchStatus(ctx, id)
}

func (p *Poller) stopLocked(id string) {
	w, ok := p.watches[id]
	if !ok {
		return
	}
	w.cancel()
	delete(p.watches, id)
	if p.subs[w.subscriber] == id {
		delete(p.subs, w.subscriber)
	}
	metrics.ActiveWatches.Set(float64(len(p.watches)))
}

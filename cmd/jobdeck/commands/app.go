package commands

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/config"
	"github.com/Harsh-BH/jobdeck/internal/gateway"
	"github.com/Harsh-BH/jobdeck/internal/gateway/httpgw"
	"github.com/Harsh-BH/jobdeck/internal/gateway/simulated"
	"github.com/Harsh-BH/jobdeck/internal/localstate"
	"github.com/Harsh-BH/jobdeck/internal/tracker"
	"github.com/Harsh-BH/jobdeck/internal/view"
)

// AppContext holds everything one command invocation works with.
type AppContext struct {
	Config  *config.ClientConfig
	Logger  *zap.Logger
	State   *localstate.State
	Store   *tracker.Store
	Gateway gateway.Gateway
	Poller  *tracker.Poller
	Binder  *view.Binder
	Out     io.Writer

	events chan tracker.Event
}

type appOptions struct {
	// live renders a full frame on every store change.
	live        bool
	clearScreen bool
}

// NewAppContext loads configuration and local state and wires the tracker
// and view for one command.
func NewAppContext(ctx context.Context, cmd *cli.Command, opts appOptions) (*AppContext, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cmd.IsSet("simulate") {
		cfg.Simulate = cmd.Bool("simulate")
	}
	if cmd.IsSet("api-url") {
		cfg.APIURL = cmd.String("api-url")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	state, err := localstate.Open(cfg.StatePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	jobs, err := state.LoadJobs(ctx)
	if err != nil {
		state.Close()
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	user, err := state.LoadUser(ctx)
	if err != nil {
		state.Close()
		return nil, fmt.Errorf("load user: %w", err)
	}

	var gw gateway.Gateway
	if cfg.Simulate {
		sim := simulated.New()
		// The simulation lives in this process; carry tracked jobs over.
		for _, j := range jobs {
			sim.Seed(j)
		}
		gw = sim
	} else {
		gw = httpgw.New(cfg.APIURL, cfg.HTTPTimeout, logger)
	}

	// Frames, notifications and command output come from different goroutines.
	out := &lockedWriter{w: cmd.Root().Writer}
	store := tracker.NewStore(logger)
	store.Load(jobs)

	app := &AppContext{
		Config:  cfg,
		Logger:  logger,
		State:   state,
		Store:   store,
		Gateway: gw,
		Out:     out,
		events:  make(chan tracker.Event, 16),
	}

	notifier := view.Fanout{
		tracker.NewLogNotifier(logger),
		view.NewWriterNotifier(out),
		tracker.ChanNotifier(app.events),
	}
	app.Poller = tracker.NewPoller(gw, store, notifier, tracker.PollerConfig{
		DetailInterval: cfg.DetailInterval,
		BulkInterval:   cfg.BulkInterval,
		RequestTimeout: cfg.HTTPTimeout,
	}, logger)

	bcfg := view.Config{
		Store:          store,
		Gateway:        gw,
		Watcher:        app.Poller,
		Persister:      state,
		User:           user,
		ClearScreen:    opts.clearScreen,
		DebounceWindow: cfg.DebounceWindow,
	}
	if opts.live {
		bcfg.Out = out
	}
	app.Binder = view.NewBinder(bcfg, logger)
	return app, nil
}

// WaitFor blocks until id finishes, its polling stops, or ctx is done.
func (a *AppContext) WaitFor(ctx context.Context, id string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-a.events:
			if e.JobID != id {
				continue
			}
			if e.Kind == tracker.EventPollError {
				return e.Err
			}
			return nil
		}
	}
}

// Close stops polling and releases local state.
func (a *AppContext) Close() {
	a.Binder.Close()
	a.Poller.Close()
	if err := a.State.Close(); err != nil {
		a.Logger.Warn("Failed to close local state", zap.Error(err))
	}
	_ = a.Logger.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid JOBDECK_LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

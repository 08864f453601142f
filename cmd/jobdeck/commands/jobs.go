package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/faq"
)

func jobIDArg(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", fmt.Errorf("usage: jobdeck %s JOB_ID", cmd.Name)
	}
	return id, nil
}

// ListAction prints the job table, refreshed from the backend unless --offline.
func ListAction(ctx context.Context, cmd *cli.Command) error {
	var filter domain.Status
	if s := cmd.String("status"); s != "" {
		st, err := domain.ParseStatus(s)
		if err != nil {
			return err
		}
		filter = st
	}

	app, err := NewAppContext(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	if !cmd.Bool("offline") {
		if err := app.Binder.Sync(ctx); err != nil {
			app.Logger.Warn("Showing cached jobs", zap.Error(err))
			fmt.Fprintf(app.Out, "! Could not refresh from the job service: %v\n", err)
		}
		if err := app.Poller.RefreshActive(ctx); err != nil {
			app.Logger.Debug("Some active jobs could not be refreshed", zap.Error(err))
		}
	}

	app.Binder.SetFilter(filter)
	fmt.Fprint(app.Out, app.Binder.Render())
	return nil
}

// WatchAction follows one job until it finishes.
func WatchAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobIDArg(cmd)
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd, appOptions{live: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Store.Get(id); err != nil {
		job, ferr := app.Gateway.FetchStatus(ctx, id)
		if ferr != nil {
			return fmt.Errorf("fetch job %s: %w", id, ferr)
		}
		app.Store.Upsert(job)
	}
	if err := app.Binder.ViewDetails(id); err != nil {
		return err
	}

	job, err := app.Store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	return app.WaitFor(ctx, id)
}

// CancelAction cancels an active job.
func CancelAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobIDArg(cmd)
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	job, err := app.Binder.Cancel(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Job %s is %s: %s\n", job.ID, job.Status, job.Message)
	return nil
}

// ResultAction downloads a completed job's artifact. FAQ entries are printed,
// or written as CSV with --csv.
func ResultAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobIDArg(cmd)
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	// The local copy may predate completion.
	if job, ferr := app.Gateway.FetchStatus(ctx, id); ferr == nil {
		app.Store.Upsert(job)
	} else if _, gerr := app.Store.Get(id); gerr != nil {
		return fmt.Errorf("fetch job %s: %w", id, ferr)
	}

	art, err := app.Binder.Download(ctx, id)
	if err != nil {
		return err
	}

	if art.Kind != domain.KindFAQ {
		fmt.Fprintf(app.Out, "Model published at %s\n", art.Ref)
		return nil
	}

	if !cmd.Bool("csv") {
		fmt.Fprintf(app.Out, "%d FAQ entries (%s)\n", len(art.Entries), art.Ref)
		for _, e := range art.Entries {
			fmt.Fprintf(app.Out, "%d. [%s] %s\n   %s\n", e.ID, e.Section, e.Question, e.Answer)
		}
		return nil
	}

	path := filepath.Join(cmd.String("dir"), domain.DatasetFileName(id))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := faq.WriteCSV(f, art.Entries); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Wrote %d entries to %s\n", len(art.Entries), path)
	return nil
}

// DeleteAction removes a job from the backend and the local list.
func DeleteAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobIDArg(cmd)
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Binder.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted job %s\n", id)
	return nil
}

package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/faq"
)

const dashboardHelp = `Commands:
  view ID                     open the detail panel and poll the job
  close                       close the detail panel
  faq FILE                    submit a document for FAQ extraction
  finetune MODEL TYPE IDS     submit a fine-tuning job (IDS comma separated)
  cancel ID                   cancel an active job
  download ID                 write a completed FAQ job's entries as CSV
  delete ID                   delete a job
  filter STATUS|all           filter the table by status
  user ID [NAME]              switch the operator identity
  sync                        reload the job list from the backend
  quit                        exit
`

var errQuit = errors.New("quit")

// DashboardAction runs the live dashboard, reading commands from stdin.
func DashboardAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd, appOptions{live: true, clearScreen: !cmd.Bool("no-clear")})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.Binder.Sync(ctx); err != nil {
		fmt.Fprintf(app.Out, "! %v\n", err)
	}
	go app.Poller.RunBulkRefresh(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.Root().Reader)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	d := &dashboard{app: app}
	fmt.Fprint(app.Out, app.Binder.Render())
	fmt.Fprint(app.Out, dashboardHelp)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := d.dispatch(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(app.Out, "! %v\n", err)
			}
		}
	}
}

type dashboard struct {
	app *AppContext
}

func (d *dashboard) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	b := d.app.Binder
	name, args := fields[0], fields[1:]

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: expected %d argument(s), see help", name, n)
		}
		return nil
	}

	switch name {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprint(d.app.Out, dashboardHelp)
		return nil
	case "view":
		if err := need(1); err != nil {
			return err
		}
		return b.ViewDetails(args[0])
	case "close":
		b.CloseDetails()
		return nil
	case "faq":
		if err := need(1); err != nil {
			return err
		}
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		_, err = b.Submit(ctx, domain.SubmitRequest{
			Kind: domain.KindFAQ,
			FAQ:  &domain.FAQUpload{FileName: filepath.Base(args[0]), Content: string(content)},
		})
		return err
	case "finetune":
		if err := need(3); err != nil {
			return err
		}
		_, err := b.Submit(ctx, domain.SubmitRequest{
			Kind: domain.KindFinetune,
			Finetune: &domain.FinetuneSpec{
				Model:        args[0],
				Type:         domain.FinetuneType(args[1]),
				SourceJobIDs: splitIDs(args[2]),
			},
		})
		return err
	case "cancel":
		if err := need(1); err != nil {
			return err
		}
		_, err := b.Cancel(ctx, args[0])
		return err
	case "download":
		if err := need(1); err != nil {
			return err
		}
		return d.download(ctx, args[0])
	case "delete":
		if err := need(1); err != nil {
			return err
		}
		return b.Delete(ctx, args[0])
	case "filter":
		if err := need(1); err != nil {
			return err
		}
		if args[0] == "all" {
			b.SetFilter("")
			return nil
		}
		st, err := domain.ParseStatus(args[0])
		if err != nil {
			return err
		}
		b.SetFilter(st)
		return nil
	case "user":
		if err := need(1); err != nil {
			return err
		}
		u := domain.User{ID: args[0], Name: strings.Join(args[1:], " ")}
		if u.Name == "" {
			u.Name = u.ID
		}
		if err := d.app.State.SaveUser(ctx, u); err != nil {
			return err
		}
		b.SetUser(u)
		return b.Sync(ctx)
	case "sync":
		return b.Sync(ctx)
	default:
		return fmt.Errorf("unknown command %q, type help", name)
	}
}

func (d *dashboard) download(ctx context.Context, id string) error {
	art, err := d.app.Binder.Download(ctx, id)
	if err != nil {
		return err
	}
	if art.Kind != domain.KindFAQ {
		fmt.Fprintf(d.app.Out, "Model published at %s\n", art.Ref)
		return nil
	}
	path := domain.DatasetFileName(id)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := faq.WriteCSV(f, art.Entries); err != nil {
		return err
	}
	d.app.Logger.Info("FAQ dataset exported", zap.String("job_id", id), zap.String("path", path))
	fmt.Fprintf(d.app.Out, "Wrote %d entries to %s\n", len(art.Entries), path)
	return nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

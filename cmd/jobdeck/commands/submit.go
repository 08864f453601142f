package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// SubmitFAQAction submits a document for FAQ extraction.
func SubmitFAQAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: jobdeck submit faq FILE")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return submit(ctx, cmd, domain.SubmitRequest{
		Kind: domain.KindFAQ,
		FAQ: &domain.FAQUpload{
			FileName: filepath.Base(path),
			Content:  string(content),
		},
	})
}

// SubmitFinetuneAction submits a fine-tuning job over earlier jobs' datasets.
func SubmitFinetuneAction(ctx context.Context, cmd *cli.Command) error {
	return submit(ctx, cmd, domain.SubmitRequest{
		Kind: domain.KindFinetune,
		Finetune: &domain.FinetuneSpec{
			SourceJobIDs: cmd.StringSlice("source"),
			Model:        cmd.String("model"),
			Type:         domain.FinetuneType(cmd.String("type")),
		},
	})
}

func submit(ctx context.Context, cmd *cli.Command, req domain.SubmitRequest) error {
	watch := cmd.Bool("watch")
	app, err := NewAppContext(ctx, cmd, appOptions{live: watch})
	if err != nil {
		return err
	}
	defer app.Close()

	job, err := app.Binder.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Submitted %s job %s\n", job.Kind, job.ID)

	if !watch {
		return nil
	}
	return app.WaitFor(ctx, job.ID)
}

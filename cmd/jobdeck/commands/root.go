package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// Root builds the jobdeck command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:  "jobdeck",
		Usage: "track fine-tuning and FAQ extraction jobs",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "simulate",
				Usage: "use the in-process simulated backend (overrides JOBDECK_SIMULATE)",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "job service base URL (overrides JOBDECK_API_URL)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "submit a new job",
				Commands: []*cli.Command{
					{
						Name:      "faq",
						Usage:     "extract FAQ entries from a .md, .txt or .docx document",
						ArgsUsage: "FILE",
						Flags:     []cli.Flag{newWatchFlag()},
						Action:    SubmitFAQAction,
					},
					{
						Name:  "finetune",
						Usage: "fine-tune a model on the datasets of earlier jobs",
						Flags: []cli.Flag{
							&cli.StringSliceFlag{
								Name:     "source",
								Usage:    "job ID whose dataset to train on (repeatable)",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "model",
								Usage:    "base model name",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "type",
								Usage: "fine-tuning type (qa, summarization, classification, embedding, reasoning)",
								Value: string(domain.FinetuneQA),
							},
							newWatchFlag(),
						},
						Action: SubmitFinetuneAction,
					},
				},
			},
			{
				Name:  "list",
				Usage: "show tracked jobs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "only show jobs with this status",
					},
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "show the local copy without contacting the backend",
					},
				},
				Action: ListAction,
			},
			{
				Name:      "watch",
				Usage:     "poll a job and show its detail panel until it finishes",
				ArgsUsage: "JOB_ID",
				Action:    WatchAction,
			},
			{
				Name:      "cancel",
				Usage:     "cancel a pending or running job",
				ArgsUsage: "JOB_ID",
				Action:    CancelAction,
			},
			{
				Name:      "result",
				Usage:     "download a completed job's result",
				ArgsUsage: "JOB_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "write FAQ entries to faq_dataset_<id>.csv",
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "directory for the CSV file",
						Value: ".",
					},
				},
				Action: ResultAction,
			},
			{
				Name:      "delete",
				Usage:     "delete a job",
				ArgsUsage: "JOB_ID",
				Action:    DeleteAction,
			},
			{
				Name:  "user",
				Usage: "operator identity",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "print the current user",
						Action: UserShowAction,
					},
					{
						Name:      "set",
						Usage:     "switch the current user",
						ArgsUsage: "ID [NAME]",
						Action:    UserSetAction,
					},
				},
			},
			{
				Name:  "dashboard",
				Usage: "live job dashboard driven by commands on stdin",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-clear",
						Usage: "append frames instead of clearing the screen",
					},
				},
				Action: DashboardAction,
			},
		},
	}
}

func newWatchFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "watch",
		Usage: "follow the job until it finishes",
	}
}

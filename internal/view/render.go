package view

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

const progressWidth = 20

// Progress describes the detail panel's progress bar.
type Progress struct {
	Visible bool
	Percent int
	Label   string
}

// ProgressFor maps a status onto the progress bar. Finished jobs hide it.
func ProgressFor(s domain.Status) Progress {
	switch s {
	case domain.StatusPending:
		return Progress{Visible: true, Percent: 10, Label: "Waiting to start..."}
	case domain.StatusInProgress:
		return Progress{Visible: true, Percent: 50, Label: "Processing..."}
	case domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled:
		return Progress{}
	default:
		panic(fmt.Sprintf("view: unhandled job status %q", s))
	}
}

// Actions lists what the operator can do with a job in its current status.
func Actions(j domain.Job) []string {
	actions := []string{"view"}
	switch {
	case j.Status.IsActive():
		actions = append(actions, "cancel")
	case j.Status == domain.StatusCompleted:
		actions = append(actions, "download")
	}
	return append(actions, "delete")
}

// frame is everything a render depends on.
type frame struct {
	user   domain.User
	filter domain.Status
	jobs   []domain.Job
	detail *domain.Job
	now    time.Time
}

func (f frame) String() string {
	var b strings.Builder

	filter := "all"
	if f.filter != "" {
		filter = string(f.filter)
	}
	fmt.Fprintf(&b, "Jobs for %s (%s) - filter: %s\n\n", f.user.Name, f.user.ID, filter)

	if len(f.jobs) == 0 {
		b.WriteString("No jobs found.\n")
	} else {
		table := tablewriter.NewWriter(&b)
		table.Header("ID", "Kind", "Status", "Created", "Updated", "Message", "Actions")
		for _, j := range f.jobs {
			_ = table.Append(
				j.ID, string(j.Kind), string(j.Status),
				humanize.RelTime(j.CreatedAt, f.now, "ago", "from now"),
				humanize.RelTime(j.UpdatedAt, f.now, "ago", "from now"),
				j.Message,
				strings.Join(Actions(j), ","),
			)
		}
		_ = table.Render()
	}

	if f.detail != nil {
		b.WriteString("\n")
		writeDetail(&b, *f.detail, f.now)
	}
	return b.String()
}

func writeDetail(b *strings.Builder, j domain.Job, now time.Time) {
	fmt.Fprintf(b, "== Job %s ==\n", j.ID)
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Kind:\t%s\n", j.Kind)
	fmt.Fprintf(tw, "Target:\t%s\n", j.Label())
	if j.FAQ != nil {
		fmt.Fprintf(tw, "Size:\t%s\n", humanize.Bytes(uint64(j.FAQ.FileSize)))
	}
	if j.Finetune != nil {
		fmt.Fprintf(tw, "Sources:\t%s\n", strings.Join(j.Finetune.SourceJobIDs, ", "))
	}
	fmt.Fprintf(tw, "Status:\t%s\n", j.Status)
	fmt.Fprintf(tw, "Message:\t%s\n", j.Message)
	fmt.Fprintf(tw, "Created:\t%s (%s)\n", j.CreatedAt.Format(time.RFC3339), humanize.RelTime(j.CreatedAt, now, "ago", "from now"))
	fmt.Fprintf(tw, "Updated:\t%s\n", j.UpdatedAt.Format(time.RFC3339))
	if j.ResultRef != "" {
		fmt.Fprintf(tw, "Result:\t%s\n", j.ResultRef)
	}
	tw.Flush()

	if p := ProgressFor(j.Status); p.Visible {
		filled := progressWidth * p.Percent / 100
		fmt.Fprintf(b, "[%s%s] %d%% %s\n", strings.Repeat("#", filled), strings.Repeat("-", progressWidth-filled), p.Percent, p.Label)
	}
	fmt.Fprintf(b, "Actions: %s\n", strings.Join(Actions(j), ", "))
}

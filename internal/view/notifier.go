package view

import (
	"fmt"
	"io"
	"sync"

	"github.com/Harsh-BH/jobdeck/internal/tracker"
)

// WriterNotifier prints one line per event, the terminal's stand-in for a toast.
type WriterNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterNotifier creates a notifier writing to out.
func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

func (n *WriterNotifier) Notify(e tracker.Event) {
	var line string
	switch e.Kind {
	case tracker.EventCompleted:
		line = fmt.Sprintf("✔ Job %s completed successfully", e.JobID)
	case tracker.EventFailed:
		line = fmt.Sprintf("✘ Job %s failed: %s", e.JobID, e.Message)
	case tracker.EventCancelled:
		line = fmt.Sprintf("■ Job %s cancelled", e.JobID)
	case tracker.EventPollError:
		line = fmt.Sprintf("! Stopped checking job %s: %v", e.JobID, e.Err)
	default:
		line = fmt.Sprintf("Job %s: %s", e.JobID, e.Kind)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, line)
}

// Fanout delivers every event to each notifier in order.
type Fanout []tracker.Notifier

func (f Fanout) Notify(e tracker.Event) {
	for _, n := range f {
		n.Notify(e)
	}
}

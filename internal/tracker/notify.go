package tracker

import (
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// EventKind classifies a user-visible notification.
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
	EventPollError EventKind = "poll_error"
)

// Event is a one-shot notification about a tracked job.
type Event struct {
	Kind    EventKind
	JobID   string
	Message string
	Err     error
}

// Notifier surfaces events to the operator.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// terminalEvent maps a finished job to its notification.
func terminalEvent(job domain.Job) Event {
	e := Event{JobID: job.ID, Message: job.Message}
	switch job.Status {
	case domain.StatusCompleted:
		e.Kind = EventCompleted
	case domain.StatusFailed:
		e.Kind = EventFailed
	default:
		e.Kind = EventCancelled
	}
	return e
}

// LogNotifier writes events to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a Notifier that only logs.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(e Event) {
	fields := []zap.Field{zap.String("job_id", e.JobID), zap.String("event", string(e.Kind))}
	switch e.Kind {
	case EventPollError:
		n.logger.Error("Stopped polling job", append(fields, zap.Error(e.Err))...)
	case EventFailed:
		n.logger.Warn("Job failed", append(fields, zap.String("message", e.Message))...)
	default:
		n.logger.Info("Job finished", append(fields, zap.String("message", e.Message))...)
	}
}

// ChanNotifier sends events on a channel. Notify may run with the poller's
// lock held, so an event is dropped when the channel is full.
type ChanNotifier chan Event

func (c ChanNotifier) Notify(e Event) {
	select {
	case c <- e:
	default:
	}
}

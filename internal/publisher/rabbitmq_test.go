package publisher

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

func TestNewPublishing(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &domain.QueuedJob{
		Job:     domain.Job{ID: "J1", Kind: domain.KindFAQ, Status: domain.StatusPending},
		Content: "Q: a\nA: b",
	}

	pub, err := newPublishing(msg, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.MessageId != "J1" || pub.Type != "faq" {
		t.Errorf("unexpected headers: id=%q type=%q", pub.MessageId, pub.Type)
	}
	if pub.DeliveryMode != amqp.Persistent {
		t.Errorf("expected persistent delivery, got %d", pub.DeliveryMode)
	}
	if !pub.Timestamp.Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, pub.Timestamp)
	}

	var decoded domain.QueuedJob
	if err := json.Unmarshal(pub.Body, &decoded); err != nil {
		t.Fatalf("body does not decode: %v", err)
	}
	if decoded.Job.ID != "J1" || decoded.Content != msg.Content {
		t.Errorf("unexpected body %s", pub.Body)
	}
}

func TestNewPublishing_RequiresID(t *testing.T) {
	if _, err := newPublishing(&domain.QueuedJob{}, time.Now()); err == nil {
		t.Error("expected error for job without id")
	}
	if _, err := newPublishing(nil, time.Now()); err == nil {
		t.Error("expected error for nil message")
	}
}

func TestQueueArgs(t *testing.T) {
	args := QueueArgs()
	if args["x-dead-letter-exchange"] != DeadLetterExchange {
		t.Errorf("job queue must dead-letter to %s, got %v", DeadLetterExchange, args["x-dead-letter-exchange"])
	}
}

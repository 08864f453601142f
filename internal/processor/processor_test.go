package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

func recordStages(stages *[]string) Checkpoint {
	return func(ctx context.Context, message string) error {
		*stages = append(*stages, message)
		return nil
	}
}

func TestProcess_Finetune(t *testing.T) {
	p := NewSimulated(0, zap.NewNop())
	job := &domain.Job{ID: "F1", Kind: domain.KindFinetune, Finetune: &domain.FinetuneSpec{
		SourceJobIDs: []string{"a", "b"}, Model: "llama", Type: domain.FinetuneSummarization,
	}}

	var stages []string
	art, err := p.Process(context.Background(), job, "", recordStages(&stages))

	require.NoError(t, err)
	assert.Equal(t, "/models/llama-summarization-F1", art.Ref)
	assert.Len(t, stages, 3)
	assert.Equal(t, "Preparing dataset from 2 job(s)", stages[0])
}

func TestProcess_FAQ(t *testing.T) {
	p := NewSimulated(0, zap.NewNop())
	job := &domain.Job{ID: "Q1", Kind: domain.KindFAQ}

	var stages []string
	art, err := p.Process(context.Background(), job, "## Intro\nQ: Hi?\nA: Hello.", recordStages(&stages))

	require.NoError(t, err)
	assert.Equal(t, "/exports/faq_dataset_Q1.csv", art.Ref)
	require.Len(t, art.Entries, 1)
	assert.Equal(t, "Intro", art.Entries[0].Section)
}

func TestProcess_FAQWithoutEntries(t *testing.T) {
	p := NewSimulated(0, zap.NewNop())
	var stages []string
	_, err := p.Process(context.Background(), &domain.Job{ID: "Q1", Kind: domain.KindFAQ}, "nothing here", recordStages(&stages))
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestProcess_CheckpointAborts(t *testing.T) {
	p := NewSimulated(0, zap.NewNop())
	calls := 0
	_, err := p.Process(context.Background(), &domain.Job{ID: "Q1", Kind: domain.KindFAQ}, "Q: a\nA: b",
		func(ctx context.Context, message string) error {
			calls++
			if calls == 2 {
				return domain.ErrInvalidState
			}
			return nil
		})

	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Equal(t, 2, calls)
}

func TestProcess_ContextCancelled(t *testing.T) {
	p := NewSimulated(time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stages []string
	_, err := p.Process(ctx, &domain.Job{ID: "Q1", Kind: domain.KindFAQ}, "Q: a\nA: b", recordStages(&stages))
	assert.ErrorIs(t, err, context.Canceled)
}

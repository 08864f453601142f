package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

func TestSourcesOf(t *testing.T) {
	assert.Equal(t, []string{"PENDING", "IN_PROGRESS"}, sourcesOf(domain.StatusCancelled))
	assert.Equal(t, []string{"IN_PROGRESS"}, sourcesOf(domain.StatusCompleted))
	assert.Equal(t, []string{"PENDING", "IN_PROGRESS"}, sourcesOf(domain.StatusInProgress))
}

func TestEncodeSpecs(t *testing.T) {
	ft, faq, err := encodeSpecs(&domain.Job{Finetune: &domain.FinetuneSpec{Model: "llama", Type: domain.FinetuneQA}})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"source_job_ids":null,"model":"llama","type":"qa"}`, string(ft))
	assert.Nil(t, faq)
}

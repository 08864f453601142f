package faq

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

const sampleDoc = `# Billing

### How do I pay?
Use a credit card
or a bank transfer.

### Is there a free tier?

## Accounts
Q: Can I rename my account?
A: Yes, from the settings page.

Question: Where is my data stored?
Answer: In the EU region.
`

func TestExtract(t *testing.T) {
	entries := Extract(sampleDoc)

	require.Len(t, entries, 3)
	assert.Equal(t, domain.FAQEntry{ID: 1, Section: "Billing", Question: "How do I pay?", Answer: "Use a credit card or a bank transfer."}, entries[0])
	assert.Equal(t, "Accounts", entries[1].Section)
	assert.Equal(t, "Can I rename my account?", entries[1].Question)
	assert.Equal(t, "Yes, from the settings page.", entries[1].Answer)
	assert.Equal(t, 3, entries[2].ID)
	assert.Equal(t, "In the EU region.", entries[2].Answer)
}

func TestExtract_DefaultSection(t *testing.T) {
	entries := Extract("Q: Why?\nA: Because.")
	require.Len(t, entries, 1)
	assert.Equal(t, "General", entries[0].Section)
}

func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, Extract("just some prose\nwithout questions"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []domain.FAQEntry{{ID: 1, Section: "S", Question: "Q, really?", Answer: "A"}})
	require.NoError(t, err)
	assert.Equal(t, "id,section,question,answer\n1,S,\"Q, really?\",A\n", buf.String())
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Status represents the lifecycle state of a tracked job.
// The set is closed: ParseStatus and UnmarshalJSON reject anything else.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled}

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(AllStatuses, st) {
		return "", ValidationError("status", fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the job is still expected to change.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

// CanTransitionTo reports whether next is a legal successor of s.
// Staying in the same non-terminal status is allowed (message updates).
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusInProgress || next == StatusFailed || next == StatusCancelled
	case StatusInProgress:
		return next == StatusInProgress || next.IsTerminal()
	}
	return false
}

// CanReach reports whether next is s or can follow s through one or more
// legal transitions. Polled snapshots may skip intermediate states.
func (s Status) CanReach(next Status) bool {
	if s == next || s.CanTransitionTo(next) {
		return true
	}
	return s == StatusPending && StatusInProgress.CanTransitionTo(next)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Kind is the type of backend work a job performs.
type Kind string

const (
	KindFinetune Kind = "finetune"
	KindFAQ      Kind = "faq"
)

// FinetuneType is the training objective of a fine-tuning job.
type FinetuneType string

const (
	FinetuneQA             FinetuneType = "qa"
	FinetuneSummarization  FinetuneType = "summarization"
	FinetuneClassification FinetuneType = "classification"
	FinetuneEmbedding      FinetuneType = "embedding"
	FinetuneReasoning      FinetuneType = "reasoning"
)

// IsValid checks if the fine-tuning type is supported.
func (t FinetuneType) IsValid() bool {
	switch t {
	case FinetuneQA, FinetuneSummarization, FinetuneClassification, FinetuneEmbedding, FinetuneReasoning:
		return true
	}
	return false
}

const (
	// MaxUploadBytes caps FAQ source files.
	MaxUploadBytes = 10 << 20
)

// AllowedUploadExtensions are the FAQ source file types accepted for extraction.
var AllowedUploadExtensions = []string{".md", ".txt", ".docx"}

// FinetuneSpec describes what a fine-tuning job trains.
type FinetuneSpec struct {
	SourceJobIDs []string     `json:"source_job_ids"`
	Model        string       `json:"model"`
	Type         FinetuneType `json:"type"`
}

// FAQSpec describes the document an FAQ extraction job reads.
type FAQSpec struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// Job is the client- and server-side snapshot of a unit of tracked work.
type Job struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	UserID    string        `json:"user_id"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	ResultRef string        `json:"result_ref,omitempty"`
	Finetune  *FinetuneSpec `json:"finetune,omitempty"`
	FAQ       *FAQSpec      `json:"faq,omitempty"`
}

// Label is a short description of what the job works on.
func (j Job) Label() string {
	switch {
	case j.Finetune != nil:
		return fmt.Sprintf("%s (%s)", j.Finetune.Model, j.Finetune.Type)
	case j.FAQ != nil:
		return j.FAQ.FileName
	}
	return string(j.Kind)
}

// FAQUpload is the document submitted for FAQ extraction.
type FAQUpload struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// SubmitRequest represents a job submission from a client.
type SubmitRequest struct {
	Kind     Kind          `json:"kind" binding:"required"`
	UserID   string        `json:"user_id" binding:"required"`
	Finetune *FinetuneSpec `json:"finetune,omitempty"`
	FAQ      *FAQUpload    `json:"faq,omitempty"`
}

// Validate checks the request before it reaches a gateway or the backend.
func (r *SubmitRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ValidationError("user_id", "required")
	}
	switch r.Kind {
	case KindFinetune:
		if r.Finetune == nil {
			return ValidationError("finetune", "required for finetune jobs")
		}
		if len(r.Finetune.SourceJobIDs) == 0 {
			return ValidationError("source_job_ids", "enter at least one job ID")
		}
		if strings.TrimSpace(r.Finetune.Model) == "" {
			return ValidationError("model", "required")
		}
		if !r.Finetune.Type.IsValid() {
			return ValidationError("type", fmt.Sprintf("unsupported type %q", r.Finetune.Type))
		}
	case KindFAQ:
		if r.FAQ == nil {
			return ValidationError("faq", "required for faq jobs")
		}
		ext := strings.ToLower(filepath.Ext(r.FAQ.FileName))
		if !slices.Contains(AllowedUploadExtensions, ext) {
			return ValidationError("file_name", "select a .md, .txt, or .docx file")
		}
		if len(r.FAQ.Content) > MaxUploadBytes {
			return ErrPayloadTooLarge
		}
		if strings.TrimSpace(r.FAQ.Content) == "" {
			return ValidationError("content", "file is empty")
		}
	default:
		return ValidationError("kind", fmt.Sprintf("unsupported kind %q", r.Kind))
	}
	return nil
}

// Fingerprint identifies a submission payload. Two requests with the same
// fingerprint are the same submission.
func (r *SubmitRequest) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", r.Kind, r.UserID)
	if r.Finetune != nil {
		fmt.Fprintf(h, "%s\x00%s\x00%s", strings.Join(r.Finetune.SourceJobIDs, ","), r.Finetune.Model, r.Finetune.Type)
	}
	if r.FAQ != nil {
		fmt.Fprintf(h, "%s\x00%d\x00", r.FAQ.FileName, len(r.FAQ.Content))
		h.Write([]byte(r.FAQ.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FAQEntry is one extracted question/answer pair.
type FAQEntry struct {
	ID       int    `json:"id"`
	Section  string `json:"section"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Artifact is the output of a completed job.
type Artifact struct {
	JobID   string     `json:"job_id"`
	Kind    Kind       `json:"kind"`
	Ref     string     `json:"ref"`
	Entries []FAQEntry `json:"entries,omitempty"`
}

// ModelPath is where a finished fine-tuning job publishes its weights.
func ModelPath(spec *FinetuneSpec, jobID string) string {
	return fmt.Sprintf("/models/%s-%s-%s", spec.Model, spec.Type, jobID)
}

// DatasetFileName is the export name for a finished FAQ job.
func DatasetFileName(jobID string) string {
	return fmt.Sprintf("faq_dataset_%s.csv", jobID)
}

// User is the operator the client acts for.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GuestUser is used until the operator sets their own identity.
func GuestUser() User {
	return User{ID: "guest_user", Name: "Guest User"}
}

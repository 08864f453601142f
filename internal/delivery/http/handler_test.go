package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/gateway/httpgw"
	mockpub "github.com/Harsh-BH/jobdeck/internal/publisher/mock"
	mockrepo "github.com/Harsh-BH/jobdeck/internal/repository/mock"
	"github.com/Harsh-BH/jobdeck/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(checks map[string]Check) (*gin.Engine, *mockrepo.MockJobRepository, *mockpub.MockPublisher) {
	repo := mockrepo.NewMockJobRepository()
	pub := mockpub.NewMockPublisher()
	logger := zap.NewNop()

	router := NewRouter(&RouterDeps{
		SubmitUC:        usecase.NewSubmitJobUsecase(repo, &mockrepo.SubmissionDeduper{}, pub, time.Second, logger),
		GetJobUC:        usecase.NewGetJobUsecase(repo, logger),
		ListJobsUC:      usecase.NewListJobsUsecase(repo),
		CancelJobUC:     usecase.NewCancelJobUsecase(repo, logger),
		DeleteJobUC:     usecase.NewDeleteJobUsecase(repo, logger),
		GetResultUC:     usecase.NewGetResultUsecase(repo),
		Checks:          checks,
		Logger:          logger,
		RateLimitPerMin: 1000,
	})
	return router, repo, pub
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func faqBody() map[string]any {
	return map[string]any{
		"kind":    "faq",
		"user_id": "guest_user",
		"faq": map[string]any{
			"file_name": "guide.md",
			"content":   "### How do I reset?\nUse the settings page.",
		},
	}
}

func seedJob(t *testing.T, repo *mockrepo.MockJobRepository, id string, status domain.Status) {
	t.Helper()
	job := &domain.Job{ID: id, Kind: domain.KindFAQ, UserID: "guest_user", Status: status, FAQ: &domain.FAQSpec{FileName: "a.md"}}
	if err := repo.Create(context.Background(), job, ""); err != nil {
		t.Fatal(err)
	}
}

func TestSubmitHandler_Success(t *testing.T) {
	router, _, pub := setupTestRouter(nil)

	w := doRequest(router, http.MethodPost, "/api/v1/jobs", faqBody())
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var job domain.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if job.ID == "" || job.Status != domain.StatusPending {
		t.Errorf("unexpected job: %+v", job)
	}
	if len(pub.Published) != 1 {
		t.Errorf("expected 1 published job, got %d", len(pub.Published))
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestSubmitHandler_DuplicateReturnsFirstJob(t *testing.T) {
	router, repo, _ := setupTestRouter(nil)

	first := doRequest(router, http.MethodPost, "/api/v1/jobs", faqBody())
	second := doRequest(router, http.MethodPost, "/api/v1/jobs", faqBody())
	if second.Code != http.StatusOK {
		t.Fatalf("expected status 200 for duplicate, got %d", second.Code)
	}

	var a, b domain.Job
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a.ID != b.ID {
		t.Errorf("expected duplicate to return %s, got %s", a.ID, b.ID)
	}
	if len(repo.GetAll()) != 1 {
		t.Errorf("expected 1 stored job, got %d", len(repo.GetAll()))
	}
}

func TestSubmitHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty body", map[string]any{}, http.StatusBadRequest},
		{"unknown kind", map[string]any{"kind": "video", "user_id": "u"}, http.StatusBadRequest},
		{"bad extension", map[string]any{"kind": "faq", "user_id": "u",
			"faq": map[string]any{"file_name": "a.pdf", "content": "x"}}, http.StatusBadRequest},
		{"too large", map[string]any{"kind": "faq", "user_id": "u",
			"faq": map[string]any{"file_name": "a.md", "content": strings.Repeat("x", domain.MaxUploadBytes+1)}}, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, pub := setupTestRouter(nil)
			w := doRequest(router, http.MethodPost, "/api/v1/jobs", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if len(pub.Published) != 0 {
				t.Error("rejected submission must not be published")
			}
		})
	}
}

func TestSubmitHandler_PublishFailure(t *testing.T) {
	router, _, pub := setupTestRouter(nil)
	pub.PublishFn = func(ctx context.Context, msg *domain.QueuedJob) error {
		return errors.New("channel closed")
	}

	w := doRequest(router, http.MethodPost, "/api/v1/jobs", faqBody())
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestGetByIDHandler(t *testing.T) {
	router, repo, _ := setupTestRouter(nil)
	seedJob(t, repo, "J1", domain.StatusPending)

	w := doRequest(router, http.MethodGet, "/api/v1/jobs/J1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var job domain.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil || job.ID != "J1" {
		t.Errorf("unexpected body %s (%v)", w.Body.String(), err)
	}

	if w := doRequest(router, http.MethodGet, "/api/v1/jobs/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestListHandler(t *testing.T) {
	router, repo, _ := setupTestRouter(nil)
	seedJob(t, repo, "J1", domain.StatusPending)
	seedJob(t, repo, "J2", domain.StatusCompleted)

	w := doRequest(router, http.MethodGet, "/api/v1/jobs?user_id=guest_user&status=COMPLETED", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp struct {
		Jobs []domain.Job `json:"jobs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0].ID != "J2" {
		t.Errorf("expected only J2, got %+v", resp.Jobs)
	}

	if w := doRequest(router, http.MethodGet, "/api/v1/jobs", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without user_id, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/v1/jobs?user_id=u&status=LOST", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown status, got %d", w.Code)
	}
}

func TestCancelHandler(t *testing.T) {
	router, repo, _ := setupTestRouter(nil)
	seedJob(t, repo, "active", domain.StatusInProgress)
	seedJob(t, repo, "done", domain.StatusCompleted)

	w := doRequest(router, http.MethodPost, "/api/v1/jobs/active/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var job domain.Job
	_ = json.Unmarshal(w.Body.Bytes(), &job)
	if job.Status != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", job.Status)
	}

	if w := doRequest(router, http.MethodPost, "/api/v1/jobs/done/cancel", nil); w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
	stored, _ := repo.GetByID(context.Background(), "done")
	if stored.Status != domain.StatusCompleted {
		t.Errorf("completed job changed to %s", stored.Status)
	}
}

func TestResultHandler(t *testing.T) {
	router, repo, _ := setupTestRouter(nil)
	seedJob(t, repo, "J1", domain.StatusInProgress)

	if w := doRequest(router, http.MethodGet, "/api/v1/jobs/J1/result", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 before completion, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/v1/jobs/nope/result", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown job, got %d", w.Code)
	}

	art := &domain.Artifact{JobID: "J1", Kind: domain.KindFAQ, Ref: "/exports/faq_dataset_J1.csv",
		Entries: []domain.FAQEntry{{ID: 1, Section: "General", Question: "Q?", Answer: "A."}}}
	if _, err := repo.Complete(context.Background(), "J1", "done", art); err != nil {
		t.Fatal(err)
	}

	w := doRequest(router, http.MethodGet, "/api/v1/jobs/J1/result", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var got domain.Artifact
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Ref != art.Ref || len(got.Entries) != 1 {
		t.Errorf("unexpected artifact %+v", got)
	}
}

func TestDeleteHandler(t *testing.T) {
	router, repo, _ := setupTestRouter(nil)
	seedJob(t, repo, "J1", domain.StatusCompleted)

	if w := doRequest(router, http.MethodDelete, "/api/v1/jobs/J1", nil); w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if w := doRequest(router, http.MethodDelete, "/api/v1/jobs/J1", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	router, _, _ := setupTestRouter(map[string]Check{
		"postgres": func(ctx context.Context) error { return nil },
	})
	if w := doRequest(router, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	router, _, _ = setupTestRouter(map[string]Check{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("dial tcp: refused") },
	})
	w := doRequest(router, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"redis":"down"`) {
		t.Errorf("expected redis to be reported down: %s", w.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	repo := mockrepo.NewMockJobRepository()
	logger := zap.NewNop()
	router := NewRouter(&RouterDeps{
		GetJobUC:        usecase.NewGetJobUsecase(repo, logger),
		Logger:          logger,
		RateLimitPerMin: 2,
	})

	for i := 0; i < 2; i++ {
		if w := doRequest(router, http.MethodGet, "/api/v1/jobs/x", nil); w.Code != http.StatusNotFound {
			t.Fatalf("request %d: expected status 404, got %d", i, w.Code)
		}
	}
	w := doRequest(router, http.MethodGet, "/api/v1/jobs/x", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Maximum 2 requests") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

// The CLI's HTTP gateway must be able to drive the server end to end.
func TestRouter_WithHTTPGateway(t *testing.T) {
	router, repo, _ := setupTestRouter(nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	gw := httpgw.New(srv.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	job, err := gw.Submit(ctx, domain.SubmitRequest{
		Kind:   domain.KindFAQ,
		UserID: "guest_user",
		FAQ:    &domain.FAQUpload{FileName: "guide.md", Content: "### Why?\nBecause."},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := gw.FetchResult(ctx, job.ID); !errors.Is(err, domain.ErrResultNotReady) {
		t.Errorf("expected ErrResultNotReady, got %v", err)
	}

	if _, err := repo.Transition(ctx, job.ID, domain.StatusInProgress, "Parsing document"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Complete(ctx, job.ID, "FAQ extraction completed", &domain.Artifact{JobID: job.ID, Ref: "ref"}); err != nil {
		t.Fatal(err)
	}

	var seen []domain.Status
	if err := gw.Stream(ctx, job.ID, func(j domain.Job) { seen = append(seen, j.Status) }); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(seen) != 1 || seen[0] != domain.StatusCompleted {
		t.Errorf("expected a single COMPLETED snapshot, got %v", seen)
	}

	if _, err := gw.Cancel(ctx, job.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if err := gw.Stream(ctx, "missing", func(domain.Job) {}); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
	if err := gw.Delete(ctx, job.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
}

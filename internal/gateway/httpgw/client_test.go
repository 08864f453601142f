package httpgw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL, time.Second, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSubmit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		var req domain.SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "guest_user", req.UserID)
		writeJSON(w, http.StatusAccepted, domain.Job{ID: "J1", Kind: req.Kind, UserID: req.UserID, Status: domain.StatusPending, CreatedAt: t0, UpdatedAt: t0})
	})
	c := newTestClient(t, mux)

	job, err := c.Submit(context.Background(), domain.SubmitRequest{
		Kind:   domain.KindFAQ,
		UserID: "guest_user",
		FAQ:    &domain.FAQUpload{FileName: "a.md", Content: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "J1", job.ID)
	assert.Equal(t, domain.StatusPending, job.Status)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"not found", http.StatusNotFound, domain.ErrJobNotFound},
		{"conflict", http.StatusConflict, domain.ErrInvalidState},
		{"bad request", http.StatusBadRequest, domain.ErrValidation},
		{"too large", http.StatusRequestEntityTooLarge, domain.ErrValidation},
		{"rate limited", http.StatusTooManyRequests, domain.ErrUnavailable},
		{"server error", http.StatusInternalServerError, domain.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.code, map[string]string{"error": "boom"})
			})
			c := newTestClient(t, mux)

			_, err := c.FetchStatus(context.Background(), "J1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchStatus_UnknownStatusRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "J1", "status": "EXPLODED"})
	})
	c := newTestClient(t, mux)

	_, err := c.FetchStatus(context.Background(), "J1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestFetchStatus_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second, zap.NewNop())

	_, err := c.FetchStatus(context.Background(), "J1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestCancel_Finished(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/jobs/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Job already finished"})
	})
	c := newTestClient(t, mux)

	_, err := c.Cancel(context.Background(), "J2")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestFetchResult(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}/result", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "J1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Result not available yet"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Artifact{JobID: "J1", Kind: domain.KindFAQ, Ref: "artifact-1",
			Entries: []domain.FAQEntry{{ID: 1, Section: "S", Question: "Q", Answer: "A"}}})
	})
	mux.HandleFunc("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "pending" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Job{ID: "pending", Kind: domain.KindFAQ, Status: domain.StatusInProgress})
	})
	c := newTestClient(t, mux)

	art, err := c.FetchResult(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, "artifact-1", art.Ref)
	assert.Len(t, art.Entries, 1)

	_, err = c.FetchResult(context.Background(), "pending")
	assert.ErrorIs(t, err, domain.ErrResultNotReady)

	_, err = c.FetchResult(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.NotErrorIs(t, err, domain.ErrResultNotReady)
}

func TestListAndDelete(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "COMPLETED", r.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, map[string]any{"jobs": []domain.Job{{ID: "a", Status: domain.StatusCompleted}}})
	})
	deleted := ""
	mux.HandleFunc("DELETE /api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.PathValue("id")
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	jobs, err := c.List(context.Background(), "u1", domain.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)

	require.NoError(t, c.Delete(context.Background(), "a"))
	assert.Equal(t, "a", deleted)
}

func TestStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, st := range []domain.Status{domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted} {
			_ = conn.WriteJSON(domain.Job{ID: r.PathValue("id"), Status: st})
		}
	})
	c := newTestClient(t, mux)

	var seen []domain.Status
	err := c.Stream(context.Background(), "J1", func(j domain.Job) { seen = append(seen, j.Status) })

	require.NoError(t, err)
	assert.Equal(t, []domain.Status{domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted}, seen)
}

func TestStream_NotFound(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]string{"error": "Job not found"})
	})
	c := newTestClient(t, mux)

	err := c.Stream(context.Background(), "missing", func(domain.Job) {})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/usecase"
)

// JobHandler handles HTTP requests for jobs.
type JobHandler struct {
	submitUC    *usecase.SubmitJobUsecase
	getJobUC    *usecase.GetJobUsecase
	listJobsUC  *usecase.ListJobsUsecase
	cancelJobUC *usecase.CancelJobUsecase
	deleteJobUC *usecase.DeleteJobUsecase
	getResultUC *usecase.GetResultUsecase
	logger      *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(deps *RouterDeps, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		submitUC:    deps.SubmitUC,
		getJobUC:    deps.GetJobUC,
		listJobsUC:  deps.ListJobsUC,
		cancelJobUC: deps.CancelJobUC,
		deleteJobUC: deps.DeleteJobUC,
		getResultUC: deps.GetResultUC,
		logger:      logger,
	}
}

// Submit handles POST /api/v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": domain.ErrPayloadTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	job, created, err := h.submitUC.Execute(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, "Submit job failed", err)
		return
	}

	// A duplicate inside the dedup window returns the first job.
	if !created {
		c.JSON(http.StatusOK, job)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// GetByID handles GET /api/v1/jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	job, err := h.getJobUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Get job failed", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// List handles GET /api/v1/jobs?user_id=&status=
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.listJobsUC.Execute(c.Request.Context(), c.Query("user_id"), c.Query("status"))
	if err != nil {
		h.writeError(c, "List jobs failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Cancel handles POST /api/v1/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	job, err := h.cancelJobUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Cancel job failed", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Result handles GET /api/v1/jobs/:id/result
func (h *JobHandler) Result(c *gin.Context) {
	art, err := h.getResultUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Get result failed", err)
		return
	}
	c.JSON(http.StatusOK, art)
}

// Delete handles DELETE /api/v1/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.deleteJobUC.Execute(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, "Delete job failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrResultNotReady):
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not available yet"})
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPublishFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("job_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

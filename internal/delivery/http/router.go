package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/delivery/http/middleware"
	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/usecase"
)

// maxBodyBytes leaves room for the JSON envelope around an upload.
const maxBodyBytes = domain.MaxUploadBytes + 1<<20

// RouterDeps holds everything the HTTP layer needs.
type RouterDeps struct {
	SubmitUC    *usecase.SubmitJobUsecase
	GetJobUC    *usecase.GetJobUsecase
	ListJobsUC  *usecase.ListJobsUsecase
	CancelJobUC *usecase.CancelJobUsecase
	DeleteJobUC *usecase.DeleteJobUsecase
	GetResultUC *usecase.GetResultUsecase

	// Checks are reported by the health endpoint, keyed by dependency name.
	Checks map[string]Check

	Logger          *zap.Logger
	RateLimitPerMin int
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(deps.Logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := NewHealthHandler(deps.Checks, deps.Logger)
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		jobHandler := NewJobHandler(deps, deps.Logger)
		jobs := v1.Group("/jobs", middleware.RateLimiter(deps.RateLimitPerMin))
		jobs.POST("", middleware.BodySizeLimit(maxBodyBytes), jobHandler.Submit)
		jobs.GET("", jobHandler.List)
		jobs.GET("/:id", jobHandler.GetByID)
		jobs.POST("/:id/cancel", jobHandler.Cancel)
		jobs.GET("/:id/result", jobHandler.Result)
		jobs.DELETE("/:id", jobHandler.Delete)

		// WebSocket for real-time updates
		wsHandler := NewWebSocketHandler(deps.GetJobUC, deps.Logger)
		v1.GET("/jobs/:id/stream", wsHandler.Stream)
	}

	return router
}

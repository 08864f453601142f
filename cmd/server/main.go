package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/config"
	handler "github.com/Harsh-BH/jobdeck/internal/delivery/http"
	"github.com/Harsh-BH/jobdeck/internal/publisher"
	"github.com/Harsh-BH/jobdeck/internal/repository/postgres"
	redisrepo "github.com/Harsh-BH/jobdeck/internal/repository/redis"
	"github.com/Harsh-BH/jobdeck/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting jobdeck API server")

	// Load configuration
	cfg, err := config.LoadServer()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.HTTP.GinMode)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	if err := postgres.Migrate(ctx, dbPool); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	// Initialize RabbitMQ publisher
	pub, err := publisher.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to RabbitMQ")

	// Initialize repositories
	jobRepo := postgres.NewPostgresJobRepository(dbPool)
	dedup := redisrepo.NewRedisIdempotencyStore(rdb)

	// Initialize router
	router := handler.NewRouter(&handler.RouterDeps{
		SubmitUC:    usecase.NewSubmitJobUsecase(jobRepo, dedup, pub, cfg.DedupWindow, logger),
		GetJobUC:    usecase.NewGetJobUsecase(jobRepo, logger),
		ListJobsUC:  usecase.NewListJobsUsecase(jobRepo),
		CancelJobUC: usecase.NewCancelJobUsecase(jobRepo, logger),
		DeleteJobUC: usecase.NewDeleteJobUsecase(jobRepo, logger),
		GetResultUC: usecase.NewGetResultUsecase(jobRepo),
		Checks: map[string]handler.Check{
			"postgres": dbPool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"rabbitmq": func(ctx context.Context) error {
				conn, err := amqp.Dial(cfg.RabbitMQ.URL)
				if err != nil {
					return err
				}
				return conn.Close()
			},
		},
		Logger:          logger,
		RateLimitPerMin: cfg.HTTP.RateLimit,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}

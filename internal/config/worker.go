package config

import (
	"fmt"
	"time"
)

// WorkerConfig holds all configuration for the processing worker.
type WorkerConfig struct {
	RabbitMQ RabbitMQConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Pool     PoolConfig
}

type PoolConfig struct {
	Size        int `mapstructure:"WORKER_POOL_SIZE"`
	MetricsPort int `mapstructure:"WORKER_METRICS_PORT"`
	// StageDelay is how long each simulated processing stage takes.
	StageDelay time.Duration `mapstructure:"WORKER_STAGE_DELAY"`
}

// LoadWorker reads worker configuration from environment variables.
func LoadWorker() (*WorkerConfig, error) {
	v := newViper()

	setBackendDefaults(v)
	v.SetDefault("WORKER_POOL_SIZE", 4)
	v.SetDefault("WORKER_METRICS_PORT", 9090)
	v.SetDefault("WORKER_STAGE_DELAY", "3s")

	_ = v.ReadInConfig()

	cfg := &WorkerConfig{}
	cfg.RabbitMQ.URL = v.GetString("RABBITMQ_URL")
	cfg.Database.URL = v.GetString("DATABASE_URL")
	cfg.Redis.URL = v.GetString("REDIS_URL")
	cfg.Pool.Size = v.GetInt("WORKER_POOL_SIZE")
	cfg.Pool.MetricsPort = v.GetInt("WORKER_METRICS_PORT")
	cfg.Pool.StageDelay = v.GetDuration("WORKER_STAGE_DELAY")

	if cfg.Pool.Size <= 0 {
		return nil, fmt.Errorf("WORKER_POOL_SIZE must be positive, got %d", cfg.Pool.Size)
	}
	return cfg, nil
}

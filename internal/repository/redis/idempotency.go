package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Harsh-BH/jobdeck/internal/repository"
)

var (
	_ repository.ProcessingLock    = (*redisIdempotency)(nil)
	_ repository.SubmissionDeduper = (*redisIdempotency)(nil)
)

const (
	lockKeyPrefix   = "jobdeck:lock:"
	submitKeyPrefix = "jobdeck:submit:"
	lockTTL         = 10 * time.Minute
)

type redisIdempotency struct {
	client *goredis.Client
}

// NewRedisIdempotencyStore creates a Redis-backed store for processing locks
// and submission deduplication.
func NewRedisIdempotencyStore(client *goredis.Client) *redisIdempotency {
	return &redisIdempotency{client: client}
}

// AcquireLock uses Redis SETNX to atomically acquire a processing lock.
func (r *redisIdempotency) AcquireLock(ctx context.Context, jobID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+jobID, time.Now().Unix(), lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock sets a TTL on the lock key for eventual cleanup.
func (r *redisIdempotency) ReleaseLock(ctx context.Context, jobID string) error {
	return r.client.Expire(ctx, lockKeyPrefix+jobID, lockTTL).Err()
}

// Claim stores jobID under the fingerprint for window using SETNX. When the
// key already exists the stored job ID is returned instead.
func (r *redisIdempotency) Claim(ctx context.Context, fingerprint, jobID string, window time.Duration) (string, bool, error) {
	key := submitKeyPrefix + fingerprint
	// The holder may expire between SETNX and GET; one more round settles it.
	for range 2 {
		ok, err := r.client.SetNX(ctx, key, jobID, window).Result()
		if err != nil {
			return "", false, fmt.Errorf("redis: claim submission: %w", err)
		}
		if ok {
			return jobID, true, nil
		}
		holder, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("redis: load submission: %w", err)
		}
		return holder, false, nil
	}
	return "", false, errors.New("redis: submission claim kept expiring")
}

// Release deletes the fingerprint key.
func (r *redisIdempotency) Release(ctx context.Context, fingerprint string) error {
	if err := r.client.Del(ctx, submitKeyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("redis: release submission: %w", err)
	}
	return nil
}

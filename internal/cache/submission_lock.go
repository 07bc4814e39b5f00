package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LockStore is the subset of Redis the submission lock needs. *RedisClient
// satisfies it.
type LockStore interface {
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key, value string) error
}

// SubmissionLock guards a payment request against concurrent submissions.
type SubmissionLock struct {
	redis LockStore
	ttl   time.Duration
}

// NewSubmissionLock creates a SubmissionLock whose keys expire after ttl.
func NewSubmissionLock(redis LockStore, ttl time.Duration) *SubmissionLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SubmissionLock{redis: redis, ttl: ttl}
}

// key returns the Redis key for a request name.
func (l *SubmissionLock) key(requestName string) string {
	return fmt.Sprintf("authnet:submit:%s", requestName)
}

// Acquire takes the lock for requestName. ok is false when another submission
// holds it. The returned release func only frees a lock this call took.
func (l *SubmissionLock) Acquire(ctx context.Context, requestName string) (release func(), ok bool, err error) {
	token := uuid.NewString()
	key := l.key(requestName)

	ok, err = l.redis.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire submission lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		// The request context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.redis.DeleteIfValue(ctx, key, token)
	}
	return release, true, nil
}

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKey = "taskdesk:worker:tick"

// releaseScript deletes the lock only when it still holds our token, so
// an instance cannot release a lock another instance took over after the
// TTL expired.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// TickLock is a Redis lease that keeps concurrent worker instances from
// running the same maintenance pass.
type TickLock struct {
	client *redis.Client
	token  string
	ttl    time.Duration
}

// NewTickLock creates a tick lock backed by the given Redis client
func NewTickLock(client *redis.Client, ttl time.Duration) *TickLock {
	return &TickLock{
		client: client,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire attempts to take the lease. Returns false when another
// instance holds it.
func (l *TickLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire tick lock: %w", err)
	}
	return ok, nil
}

// Release gives the lease back if we still hold it
func (l *TickLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release tick lock: %w", err)
	}
	return nil
}

package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iho/gopayouts/internal/domain"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock keeps two payout runs for the same window from overlapping.
type RunLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRunLock creates a new RunLock. A lock left behind by a crashed run
// expires after ttl.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{
		client: client,
		prefix: "payout-run:",
		ttl:    ttl,
	}
}

// Acquire takes the lock for key. It returns domain.ErrBatchRunning when
// another run holds it. The returned release func only frees the lock it took.
func (l *RunLock) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	set, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, domain.ErrBatchRunning
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
	}

	return release, nil
}

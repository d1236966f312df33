package redis

import (
	"context"
	"time"

	"github.com/waflow/waflow/persistence"
)

const RUN_LOCK_KEY string = "RUNLOCK"

var _ persistence.RunLocker = new(redisRunLocker)

// redisRunLocker leases a run to one worker via SET NX with a TTL. The
// TTL bounds the damage of a worker dying while holding a lease.
type redisRunLocker struct {
	*baseDao
}

func NewRedisRunLocker(conf Config) *redisRunLocker {
	return &redisRunLocker{
		baseDao: newBaseDao(conf),
	}
}

func (rl *redisRunLocker) Acquire(runId string, ttl time.Duration) (bool, error) {
	key := rl.getNamespaceKey(RUN_LOCK_KEY, runId)
	ctx := context.Background()
	ok, err := rl.redisClient.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	return ok, nil
}

func (rl *redisRunLocker) Release(runId string) error {
	key := rl.getNamespaceKey(RUN_LOCK_KEY, runId)
	ctx := context.Background()
	if err := rl.redisClient.Del(ctx, key).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

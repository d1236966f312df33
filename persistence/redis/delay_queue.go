package redis

import (
	"context"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/persistence"
	"go.uber.org/zap"
)

var _ persistence.DelayQueue = new(redisDelayQueue)

// redisDelayQueue stores due times as ZSET scores. Pop atomically reads
// and removes every member whose score has passed.
type redisDelayQueue struct {
	*baseDao
}

func NewRedisDelayQueue(conf Config) *redisDelayQueue {
	return &redisDelayQueue{
		baseDao: newBaseDao(conf),
	}
}

func (rq *redisDelayQueue) PushWithDelay(queueName string, partition string, delay time.Duration, message []byte) error {
	key := rq.getNamespaceKey(queueName, partition)
	ctx := context.Background()
	fireAt := time.Now().Add(delay).UnixMilli()
	member := rd.Z{
		Score:  float64(fireAt),
		Member: message,
	}
	if err := rq.redisClient.ZAdd(ctx, key, member).Err(); err != nil {
		logger.Error("error while push to delay queue", zap.String("queue", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rq *redisDelayQueue) Pop(queueName string, partition string) ([]string, error) {
	key := rq.getNamespaceKey(queueName, partition)
	ctx := context.Background()
	currentTime := time.Now().UnixMilli()
	pipe := rq.redisClient.Pipeline()

	opt := &rd.ZRangeBy{
		Min: strconv.Itoa(0),
		Max: strconv.FormatInt(currentTime, 10),
	}
	zr := pipe.ZRangeByScore(ctx, key, opt)
	pipe.ZRemRangeByScore(ctx, key, strconv.Itoa(0), strconv.FormatInt(currentTime, 10))

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error while pop from delay queue", zap.String("queue", key), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}

	res, err := zr.Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}

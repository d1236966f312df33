package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	"github.com/waflow/waflow/util"
	"go.uber.org/zap"
)

const RUN_KEY string = "RUN"
const RUN_LOG_KEY string = "RUNLOG"

var _ persistence.RunStorage = new(redisRunStorage)

type redisRunStorage struct {
	*baseDao
	runEncDec util.EncoderDecoder[model.RunState]
	logEncDec util.EncoderDecoder[model.ExecutionLogEntry]
}

func NewRedisRunStorage(conf Config) *redisRunStorage {
	return &redisRunStorage{
		baseDao:   newBaseDao(conf),
		runEncDec: util.NewJsonEncoderDecoder[model.RunState](),
		logEncDec: util.NewJsonEncoderDecoder[model.ExecutionLogEntry](),
	}
}

func (rs *redisRunStorage) SaveRunState(state *model.RunState) error {
	key := rs.getNamespaceKey(RUN_KEY, state.RunId)
	ctx := context.Background()
	data, err := rs.runEncDec.Encode(*state)
	if err != nil {
		return err
	}
	if err := rs.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		logger.Error("error in saving run state", zap.String("runId", state.RunId), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rs *redisRunStorage) GetRunState(runId string) (*model.RunState, error) {
	key := rs.getNamespaceKey(RUN_KEY, runId)
	ctx := context.Background()
	val, err := rs.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.RunNotFoundError{RunId: runId}
		}
		logger.Error("error in getting run state", zap.String("runId", runId), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rs.runEncDec.Decode([]byte(val))
}

func (rs *redisRunStorage) DeleteRunState(runId string) error {
	ctx := context.Background()
	keys := []string{
		rs.getNamespaceKey(RUN_KEY, runId),
		rs.getNamespaceKey(RUN_LOG_KEY, runId),
	}
	if err := rs.redisClient.Del(ctx, keys...).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rs *redisRunStorage) AppendLogEntry(runId string, entry model.ExecutionLogEntry) error {
	key := rs.getNamespaceKey(RUN_LOG_KEY, runId)
	ctx := context.Background()
	data, err := rs.logEncDec.Encode(entry)
	if err != nil {
		return err
	}
	if err := rs.redisClient.RPush(ctx, key, data).Err(); err != nil {
		logger.Error("error in appending execution log", zap.String("runId", runId), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rs *redisRunStorage) GetLogEntries(runId string) ([]model.ExecutionLogEntry, error) {
	key := rs.getNamespaceKey(RUN_LOG_KEY, runId)
	ctx := context.Background()
	values, err := rs.redisClient.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	entries := make([]model.ExecutionLogEntry, 0, len(values))
	for _, v := range values {
		entry, err := rs.logEncDec.Decode([]byte(v))
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

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

const FLOW_DEF_KEY string = "FLOWDEF"
const FLOW_DEF_RAW_KEY string = "FLOWDEF_RAW"

var _ persistence.MetadataStorage = new(redisMetadataStorage)

type redisMetadataStorage struct {
	*baseDao
	defEncDec util.EncoderDecoder[model.FlowDefinition]
}

func NewRedisMetadataStorage(conf Config) *redisMetadataStorage {
	return &redisMetadataStorage{
		baseDao:   newBaseDao(conf),
		defEncDec: util.NewJsonEncoderDecoder[model.FlowDefinition](),
	}
}

// SaveFlowDefinition stores the parsed form for execution and the raw
// submitted bytes verbatim for export.
func (ms *redisMetadataStorage) SaveFlowDefinition(def *model.FlowDefinition, raw []byte) error {
	ctx := context.Background()
	data, err := ms.defEncDec.Encode(*def)
	if err != nil {
		return err
	}
	pipe := ms.redisClient.Pipeline()
	pipe.HSet(ctx, ms.getNamespaceKey(FLOW_DEF_KEY), []string{def.Id, string(data)})
	pipe.HSet(ctx, ms.getNamespaceKey(FLOW_DEF_RAW_KEY), []string{def.Id, string(raw)})
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error in saving flow definition", zap.String("flowId", def.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (ms *redisMetadataStorage) GetFlowDefinition(flowId string) (*model.FlowDefinition, error) {
	ctx := context.Background()
	val, err := ms.redisClient.HGet(ctx, ms.getNamespaceKey(FLOW_DEF_KEY), flowId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.DefinitionNotFoundError{FlowId: flowId}
		}
		logger.Error("error in getting flow definition", zap.String("flowId", flowId), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return ms.defEncDec.Decode([]byte(val))
}

func (ms *redisMetadataStorage) GetRawFlowDefinition(flowId string) ([]byte, error) {
	ctx := context.Background()
	val, err := ms.redisClient.HGet(ctx, ms.getNamespaceKey(FLOW_DEF_RAW_KEY), flowId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.DefinitionNotFoundError{FlowId: flowId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return []byte(val), nil
}

func (ms *redisMetadataStorage) DeleteFlowDefinition(flowId string) error {
	ctx := context.Background()
	pipe := ms.redisClient.Pipeline()
	pipe.HDel(ctx, ms.getNamespaceKey(FLOW_DEF_KEY), flowId)
	pipe.HDel(ctx, ms.getNamespaceKey(FLOW_DEF_RAW_KEY), flowId)
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

// Package metadata manages flow definitions: validation on save,
// compiled-graph serving through a cache, and verbatim export of the
// submitted bytes.
package metadata

import (
	"github.com/goccy/go-json"
	"github.com/waflow/waflow/cache"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	"go.uber.org/zap"
)

type Service interface {
	Save(raw []byte) (*model.FlowDefinition, error)
	GetFlow(flowId string) (*flow.Flow, error)
	GetDefinition(flowId string) (*model.FlowDefinition, error)
	Export(flowId string) ([]byte, error)
	Delete(flowId string) error
}

type serviceImpl struct {
	storage persistence.MetadataStorage
	cache   *cache.FlowCache
}

func NewService(storage persistence.MetadataStorage) Service {
	return &serviceImpl{
		storage: storage,
		cache:   cache.NewFlowCache(),
	}
}

// Save validates the definition by compiling it and persists both the
// parsed form and the raw bytes. A definition that does not compile is
// rejected before any run can reference it.
func (s *serviceImpl) Save(raw []byte) (*model.FlowDefinition, error) {
	var def model.FlowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, flow.ValidationError{Message: err.Error()}
	}
	if _, err := flow.Compile(&def); err != nil {
		return nil, err
	}
	if err := s.storage.SaveFlowDefinition(&def, raw); err != nil {
		return nil, err
	}
	s.cache.Delete(def.Id)
	logger.Info("flow definition saved", zap.String("flowId", def.Id), zap.Int("version", def.Version))
	return &def, nil
}

func (s *serviceImpl) GetFlow(flowId string) (*flow.Flow, error) {
	if fl, ok := s.cache.Get(flowId); ok {
		return fl, nil
	}
	def, err := s.storage.GetFlowDefinition(flowId)
	if err != nil {
		return nil, err
	}
	fl, err := flow.Compile(def)
	if err != nil {
		return nil, err
	}
	s.cache.Save(flowId, fl)
	return fl, nil
}

func (s *serviceImpl) GetDefinition(flowId string) (*model.FlowDefinition, error) {
	return s.storage.GetFlowDefinition(flowId)
}

func (s *serviceImpl) Export(flowId string) ([]byte, error) {
	return s.storage.GetRawFlowDefinition(flowId)
}

func (s *serviceImpl) Delete(flowId string) error {
	if err := s.storage.DeleteFlowDefinition(flowId); err != nil {
		return err
	}
	s.cache.Delete(flowId)
	return nil
}

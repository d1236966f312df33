// Package service bridges the REST surface to the engine.
package service

import (
	"context"

	"github.com/waflow/waflow/engine"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	"go.uber.org/zap"
)

type ExecutionService struct {
	engine  *engine.Engine
	storage persistence.RunStorage
}

func NewExecutionService(eng *engine.Engine, storage persistence.RunStorage) *ExecutionService {
	return &ExecutionService{
		engine:  eng,
		storage: storage,
	}
}

func (s *ExecutionService) StartFlow(ctx context.Context, req model.FlowRunRequest) (*model.RunResult, error) {
	logger.Info("starting flow", zap.String("flowId", req.FlowId), zap.Bool("test", req.Trigger.Test))
	return s.engine.StartFlow(ctx, req.FlowId, req.Trigger)
}

// TestFlow runs the flow in preview mode: unresolved placeholders stay
// literal and outbound messages are recorded instead of delivered.
func (s *ExecutionService) TestFlow(ctx context.Context, req model.FlowRunRequest) (*model.RunResult, error) {
	req.Trigger.Test = true
	return s.engine.StartFlow(ctx, req.FlowId, req.Trigger)
}

func (s *ExecutionService) HandleEvent(ctx context.Context, ev model.FlowEvent) (*model.RunResult, error) {
	event := model.Event{
		Type:  ev.Type,
		Value: ev.Value,
		Data:  ev.Data,
	}
	return s.engine.ResumeFlow(ctx, ev.RunId, event)
}

func (s *ExecutionService) Cancel(ctx context.Context, runId string) error {
	return s.engine.Cancel(ctx, runId)
}

type RunDetail struct {
	State *model.RunState           `json:"state"`
	Logs  []model.ExecutionLogEntry `json:"logs"`
}

func (s *ExecutionService) GetRun(ctx context.Context, runId string) (*RunDetail, error) {
	state, err := s.storage.GetRunState(runId)
	if err != nil {
		return nil, err
	}
	logs, err := s.storage.GetLogEntries(runId)
	if err != nil {
		return nil, err
	}
	return &RunDetail{State: state, Logs: logs}, nil
}

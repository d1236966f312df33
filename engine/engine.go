// Package engine walks a compiled flow graph node by node against one
// conversation: executing nodes, branching, suspending at wait points,
// persisting progress and resuming deterministically.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/waflow/waflow/analytics"
	"github.com/waflow/waflow/collaborator"
	"github.com/waflow/waflow/executor"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/metadata"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	"github.com/waflow/waflow/template"
	"github.com/waflow/waflow/variables"
	"go.uber.org/zap"
)

const DEFAULT_MAX_NODE_VISITS = 1000
const DEFAULT_MAX_INPUT_ATTEMPTS = 3
const DEFAULT_LOCK_TTL = 2 * time.Minute

type Config struct {
	MaxNodeVisits    int
	MaxInputAttempts int
	LockTTL          time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxNodeVisits <= 0 {
		c.MaxNodeVisits = DEFAULT_MAX_NODE_VISITS
	}
	if c.MaxInputAttempts <= 0 {
		c.MaxInputAttempts = DEFAULT_MAX_INPUT_ATTEMPTS
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DEFAULT_LOCK_TTL
	}
}

type Engine struct {
	conf      Config
	metadata  metadata.Service
	storage   persistence.RunStorage
	locker    persistence.RunLocker
	sender    collaborator.MessageSender
	http      collaborator.HTTPCaller
	mutator   collaborator.ContactMutator
	scheduler collaborator.ResumeScheduler
	registry  *executor.Registry
	collector *analytics.LogFileDataCollector
}

func New(conf Config, metadataService metadata.Service, storage persistence.RunStorage,
	locker persistence.RunLocker, sender collaborator.MessageSender,
	httpCaller collaborator.HTTPCaller, mutator collaborator.ContactMutator) *Engine {
	conf.applyDefaults()
	return &Engine{
		conf:     conf,
		metadata: metadataService,
		storage:  storage,
		locker:   locker,
		sender:   sender,
		http:     httpCaller,
		mutator:  mutator,
		registry: executor.NewRegistry(),
	}
}

// SetScheduler wires the delay-resume collaborator. Without one, delay
// suspensions persist but the host is responsible for resumption.
func (e *Engine) SetScheduler(s collaborator.ResumeScheduler) {
	e.scheduler = s
}

func (e *Engine) SetDataCollector(c *analytics.LogFileDataCollector) {
	e.collector = c
}

// StartFlow creates a run at the flow's start node and executes it
// synchronously until it suspends, completes or fails.
func (e *Engine) StartFlow(ctx context.Context, flowId string, trigger model.Trigger) (*model.RunResult, error) {
	fl, err := e.metadata.GetFlow(flowId)
	if err != nil {
		return nil, err
	}
	runId := uuid.New().String()
	now := time.Now()
	state := &model.RunState{
		RunId:          runId,
		FlowId:         flowId,
		FlowVersion:    fl.Version,
		TenantId:       trigger.TenantId,
		ConversationId: trigger.ConversationId,
		ContactId:      trigger.ContactId,
		CurrentNodeId:  fl.StartNodeId,
		Status:         model.RUN_STATUS_RUNNING,
		Variables:      seedVariables(fl, runId, trigger),
		Test:           trigger.Test,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	acquired, err := e.locker.Acquire(runId, e.conf.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, flow.RunLockedError{RunId: runId}
	}
	defer e.release(runId)
	logger.Info("starting flow run", zap.String("flowId", flowId), zap.String("runId", runId))
	return e.drive(ctx, fl, state, nil)
}

// ResumeFlow continues a waiting run with an external event. Resuming a
// run that is not waiting is rejected and never advances it.
func (e *Engine) ResumeFlow(ctx context.Context, runId string, event model.Event) (*model.RunResult, error) {
	acquired, err := e.locker.Acquire(runId, e.conf.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, flow.RunLockedError{RunId: runId}
	}
	defer e.release(runId)

	state, err := e.storage.GetRunState(runId)
	if err != nil {
		return nil, err
	}
	if !state.Status.IsWaiting() {
		return nil, flow.NotWaitingError{RunId: runId, Status: string(state.Status)}
	}
	fl, err := e.metadata.GetFlow(state.FlowId)
	if err != nil {
		return nil, err
	}
	state.Status = model.RUN_STATUS_RUNNING
	logger.Info("resuming flow run", zap.String("runId", runId), zap.String("event", string(event.Type)))
	return e.drive(ctx, fl, state, &event)
}

// Cancel transitions any non-terminal run to cancelled. The run lock
// serializes cancellation against an in-flight resume.
func (e *Engine) Cancel(ctx context.Context, runId string) error {
	acquired, err := e.locker.Acquire(runId, e.conf.LockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return flow.RunLockedError{RunId: runId}
	}
	defer e.release(runId)

	state, err := e.storage.GetRunState(runId)
	if err != nil {
		return err
	}
	if state.Status.IsTerminal() {
		return fmt.Errorf("run %s already terminal with status %s", runId, state.Status)
	}
	state.Status = model.RUN_STATUS_CANCELLED
	state.UpdatedAt = time.Now()
	if err := e.storage.SaveRunState(state); err != nil {
		return err
	}
	logger.Info("flow run cancelled", zap.String("runId", runId))
	return nil
}

func (e *Engine) release(runId string) {
	if err := e.locker.Release(runId); err != nil {
		logger.Error("error releasing run lock", zap.String("runId", runId), zap.Error(err))
	}
}

// drive is the synchronous execution loop: there is no step boundary
// visible to the caller except at true suspension points.
func (e *Engine) drive(ctx context.Context, fl *flow.Flow, state *model.RunState, event *model.Event) (*model.RunResult, error) {
	store := variables.FromBindings(state.Variables)
	mode := template.ModeProd
	sender := e.sender
	var recorder *collaborator.RecordingSender
	if state.Test {
		mode = template.ModePreview
		recorder = collaborator.NewRecordingSender()
		sender = recorder
	}
	ec := &executor.Context{
		Flow:             fl,
		Run:              state,
		Store:            store,
		Resolver:         template.NewResolver(mode),
		Sender:           sender,
		Http:             e.http,
		Mutator:          e.mutator,
		Event:            event,
		MaxInputAttempts: e.conf.MaxInputAttempts,
	}
	var logs []model.ExecutionLogEntry

	for steps := 0; ; steps++ {
		if steps >= e.conf.MaxNodeVisits {
			return e.finishFailed(state, logs, recorder, flow.InfiniteLoopError{Visits: e.conf.MaxNodeVisits})
		}
		node, ok := fl.Nodes[state.CurrentNodeId]
		if !ok {
			return e.finishFailed(state, logs, recorder, flow.NoMatchingEdgeError{NodeId: state.CurrentNodeId})
		}
		exec, ok := e.registry.Get(node.Type)
		if !ok {
			return e.finishFailed(state, logs, recorder, fmt.Errorf("no executor for node type %s", node.Type))
		}
		state.Visits++
		state.ExecutionPath = append(state.ExecutionPath, node.Id)

		res := exec.Execute(ctx, ec, node)
		ec.Event = nil

		entry := e.appendLog(state, node, res, store)
		logs = append(logs, entry)

		switch res.Kind {
		case executor.KIND_COMPLETE:
			state.Status = model.RUN_STATUS_COMPLETED
			return e.finish(state, logs, recorder)
		case executor.KIND_FAIL:
			return e.finishFailed(state, logs, recorder, res.Err)
		case executor.KIND_SUSPEND:
			// an unchanged deadline means the timer is already queued
			alreadyScheduled := res.Reason == model.RUN_STATUS_WAITING_DELAY && res.ResumeAt.Equal(state.ResumeAt)
			state.Status = res.Reason
			state.ResumeAt = res.ResumeAt
			state.AwaitingVariable = res.AwaitingVariable
			if err := e.persist(state); err != nil {
				return nil, err
			}
			if res.Reason == model.RUN_STATUS_WAITING_DELAY && !alreadyScheduled {
				if e.scheduler != nil {
					if err := e.scheduler.Schedule(state.RunId, res.ResumeAt); err != nil {
						logger.Error("error scheduling delay resume", zap.String("runId", state.RunId), zap.Error(err))
					}
				} else {
					logger.Warn("no resume scheduler wired, delay resume is the host's responsibility", zap.String("runId", state.RunId))
				}
			}
			logger.Info("flow run suspended",
				zap.String("runId", state.RunId),
				zap.String("status", string(state.Status)),
				zap.String("nodeId", node.Id))
			return e.result(state, logs, recorder), nil
		case executor.KIND_ADVANCE:
			if res.JumpTo != "" {
				state.CurrentNodeId = res.JumpTo
				continue
			}
			target, ok := fl.Next(node.Id, res.Label)
			if !ok {
				return e.finishFailed(state, logs, recorder, flow.NoMatchingEdgeError{NodeId: node.Id, Label: res.Label})
			}
			state.CurrentNodeId = target
		}
	}
}

func (e *Engine) appendLog(state *model.RunState, node *model.Node, res executor.Result, store *variables.Store) model.ExecutionLogEntry {
	entry := model.ExecutionLogEntry{
		NodeId:          node.Id,
		NodeType:        node.Type,
		ResolvedConfig:  res.Resolved,
		Outcome:         outcome(res),
		Timestamp:       time.Now(),
		ContextSnapshot: store.Snapshot(),
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if err := e.storage.AppendLogEntry(state.RunId, entry); err != nil {
		logger.Error("error appending execution log", zap.String("runId", state.RunId), zap.Error(err))
	}
	if e.collector != nil {
		if res.Kind == executor.KIND_FAIL {
			e.collector.RecordNodeFailure(state.FlowId, state.RunId, node.Id, string(node.Type), entry.Error)
		} else {
			e.collector.RecordNodeSuccess(state.FlowId, state.RunId, node.Id, string(node.Type), entry.Outcome)
		}
	}
	return entry
}

func outcome(res executor.Result) string {
	switch res.Kind {
	case executor.KIND_FAIL:
		return "error"
	case executor.KIND_SUSPEND:
		return "suspended:" + string(res.Reason)
	case executor.KIND_ADVANCE:
		if res.Label != "" {
			return "branch:" + res.Label
		}
		return "success"
	}
	return "success"
}

func (e *Engine) finishFailed(state *model.RunState, logs []model.ExecutionLogEntry, recorder *collaborator.RecordingSender, err error) (*model.RunResult, error) {
	state.Status = model.RUN_STATUS_FAILED
	state.Error = err.Error()
	logger.Error("flow run failed", zap.String("runId", state.RunId), zap.Error(err))
	return e.finish(state, logs, recorder)
}

func (e *Engine) finish(state *model.RunState, logs []model.ExecutionLogEntry, recorder *collaborator.RecordingSender) (*model.RunResult, error) {
	if err := e.persist(state); err != nil {
		return nil, err
	}
	if state.Status == model.RUN_STATUS_COMPLETED {
		logger.Info("flow run completed", zap.String("flowId", state.FlowId), zap.String("runId", state.RunId))
	}
	return e.result(state, logs, recorder), nil
}

func (e *Engine) persist(state *model.RunState) error {
	state.UpdatedAt = time.Now()
	return e.storage.SaveRunState(state)
}

func (e *Engine) result(state *model.RunState, logs []model.ExecutionLogEntry, recorder *collaborator.RecordingSender) *model.RunResult {
	result := &model.RunResult{
		RunId:         state.RunId,
		FlowId:        state.FlowId,
		Status:        state.Status,
		Success:       state.Status != model.RUN_STATUS_FAILED && state.Status != model.RUN_STATUS_CANCELLED,
		Error:         state.Error,
		ExecutionPath: append([]string{}, state.ExecutionPath...),
		Logs:          logs,
		FinalContext:  variables.FromBindings(state.Variables).Snapshot(),
	}
	if recorder != nil {
		result.Messages = recorder.Messages()
	}
	return result
}

func seedVariables(fl *flow.Flow, runId string, trigger model.Trigger) map[string]any {
	vars := make(map[string]any)
	contact := trigger.Contact
	if contact == nil {
		contact = make(map[string]any)
	}
	if trigger.ContactId != "" {
		contact["id"] = trigger.ContactId
	}
	vars["contact"] = contact
	user := trigger.User
	if user == nil {
		user = make(map[string]any)
	}
	vars["user"] = user
	vars["conversation"] = map[string]any{
		"id":          trigger.ConversationId,
		"lastMessage": trigger.Message,
	}
	vars["flow"] = map[string]any{
		"id":      fl.Id,
		"version": fl.Version,
		"runId":   runId,
	}
	for k, v := range trigger.Input {
		vars[k] = v
	}
	return vars
}

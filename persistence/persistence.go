package persistence

import (
	"fmt"
	"time"

	"github.com/waflow/waflow/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type RunNotFoundError struct {
	RunId string
}

func (e RunNotFoundError) Error() string {
	return fmt.Sprintf("run %s not found", e.RunId)
}

type DefinitionNotFoundError struct {
	FlowId string
}

func (e DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("flow definition %s not found", e.FlowId)
}

// RunStorage persists run state and the append-only execution trace.
type RunStorage interface {
	SaveRunState(state *model.RunState) error
	GetRunState(runId string) (*model.RunState, error)
	DeleteRunState(runId string) error
	AppendLogEntry(runId string, entry model.ExecutionLogEntry) error
	GetLogEntries(runId string) ([]model.ExecutionLogEntry, error)
}

// MetadataStorage stores flow definitions. The raw submitted bytes are
// kept verbatim so export round-trips unchanged.
type MetadataStorage interface {
	SaveFlowDefinition(def *model.FlowDefinition, raw []byte) error
	GetFlowDefinition(flowId string) (*model.FlowDefinition, error)
	GetRawFlowDefinition(flowId string) ([]byte, error)
	DeleteFlowDefinition(flowId string) error
}

// DelayQueue holds resume requests until they fall due. Partitions keep
// pollers independent; a message lands in the partition derived from
// its run id.
type DelayQueue interface {
	PushWithDelay(queueName string, partition string, delay time.Duration, message []byte) error
	Pop(queueName string, partition string) ([]string, error)
}

// RunLocker serializes work on one run. Acquire returns false when the
// lease is already held; the caller rejects the concurrent attempt
// rather than interleaving.
type RunLocker interface {
	Acquire(runId string, ttl time.Duration) (bool, error)
	Release(runId string) error
}

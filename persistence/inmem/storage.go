// Package inmem is the map-backed storage used as the library default
// and in tests.
package inmem

import (
	"sync"
	"time"

	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	"github.com/waflow/waflow/util"
)

type delayedMessage struct {
	fireAt  time.Time
	message string
}

type Storage struct {
	mu      sync.Mutex
	runs    map[string][]byte
	logs    map[string][][]byte
	defs    map[string][]byte
	rawDefs map[string][]byte
	delays  map[string][]delayedMessage
	locks   map[string]time.Time

	runEncDec util.EncoderDecoder[model.RunState]
	logEncDec util.EncoderDecoder[model.ExecutionLogEntry]
	defEncDec util.EncoderDecoder[model.FlowDefinition]
}

var _ persistence.RunStorage = new(Storage)
var _ persistence.MetadataStorage = new(Storage)
var _ persistence.DelayQueue = new(Storage)
var _ persistence.RunLocker = new(Storage)

func NewStorage() *Storage {
	return &Storage{
		runs:      make(map[string][]byte),
		logs:      make(map[string][][]byte),
		defs:      make(map[string][]byte),
		rawDefs:   make(map[string][]byte),
		delays:    make(map[string][]delayedMessage),
		locks:     make(map[string]time.Time),
		runEncDec: util.NewJsonEncoderDecoder[model.RunState](),
		logEncDec: util.NewJsonEncoderDecoder[model.ExecutionLogEntry](),
		defEncDec: util.NewJsonEncoderDecoder[model.FlowDefinition](),
	}
}

func (s *Storage) SaveRunState(state *model.RunState) error {
	data, err := s.runEncDec.Encode(*state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[state.RunId] = data
	return nil
}

func (s *Storage) GetRunState(runId string) (*model.RunState, error) {
	s.mu.Lock()
	data, ok := s.runs[runId]
	s.mu.Unlock()
	if !ok {
		return nil, persistence.RunNotFoundError{RunId: runId}
	}
	return s.runEncDec.Decode(data)
}

func (s *Storage) DeleteRunState(runId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runId)
	delete(s.logs, runId)
	return nil
}

func (s *Storage) AppendLogEntry(runId string, entry model.ExecutionLogEntry) error {
	data, err := s.logEncDec.Encode(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[runId] = append(s.logs[runId], data)
	return nil
}

func (s *Storage) GetLogEntries(runId string) ([]model.ExecutionLogEntry, error) {
	s.mu.Lock()
	raw := s.logs[runId]
	s.mu.Unlock()
	entries := make([]model.ExecutionLogEntry, 0, len(raw))
	for _, data := range raw {
		entry, err := s.logEncDec.Decode(data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *Storage) SaveFlowDefinition(def *model.FlowDefinition, raw []byte) error {
	data, err := s.defEncDec.Encode(*def)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[def.Id] = data
	rawCopy := make([]byte, len(raw))
	copy(rawCopy, raw)
	s.rawDefs[def.Id] = rawCopy
	return nil
}

func (s *Storage) GetFlowDefinition(flowId string) (*model.FlowDefinition, error) {
	s.mu.Lock()
	data, ok := s.defs[flowId]
	s.mu.Unlock()
	if !ok {
		return nil, persistence.DefinitionNotFoundError{FlowId: flowId}
	}
	return s.defEncDec.Decode(data)
}

func (s *Storage) GetRawFlowDefinition(flowId string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.rawDefs[flowId]
	if !ok {
		return nil, persistence.DefinitionNotFoundError{FlowId: flowId}
	}
	return raw, nil
}

func (s *Storage) DeleteFlowDefinition(flowId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defs, flowId)
	delete(s.rawDefs, flowId)
	return nil
}

func (s *Storage) PushWithDelay(queueName string, partition string, delay time.Duration, message []byte) error {
	key := queueName + ":" + partition
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[key] = append(s.delays[key], delayedMessage{
		fireAt:  time.Now().Add(delay),
		message: string(message),
	})
	return nil
}

func (s *Storage) Pop(queueName string, partition string) ([]string, error) {
	key := queueName + ":" + partition
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []string
	var remaining []delayedMessage
	for _, msg := range s.delays[key] {
		if !msg.fireAt.After(now) {
			due = append(due, msg.message)
		} else {
			remaining = append(remaining, msg)
		}
	}
	s.delays[key] = remaining
	return due, nil
}

func (s *Storage) Acquire(runId string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deadline, ok := s.locks[runId]; ok && time.Now().Before(deadline) {
		return false, nil
	}
	s.locks[runId] = time.Now().Add(ttl)
	return true, nil
}

func (s *Storage) Release(runId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, runId)
	return nil
}

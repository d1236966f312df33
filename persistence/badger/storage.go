// Package badger is the embedded storage used for single-node
// deployments: run state, definitions and the delay queue live in one
// badger database. Run locks are process-local, which is sufficient
// because a badger deployment has exactly one worker process.
package badger

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	"github.com/waflow/waflow/util"
)

type Storage struct {
	db        *badger.DB
	namespace string
	locks     sync.Map
	logSeq    sync.Map
	runEncDec util.EncoderDecoder[model.RunState]
	logEncDec util.EncoderDecoder[model.ExecutionLogEntry]
	defEncDec util.EncoderDecoder[model.FlowDefinition]
}

var _ persistence.RunStorage = new(Storage)
var _ persistence.MetadataStorage = new(Storage)
var _ persistence.DelayQueue = new(Storage)
var _ persistence.RunLocker = new(Storage)

func NewStorage(path string, namespace string) (*Storage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return &Storage{
		db:        db,
		namespace: namespace,
		runEncDec: util.NewJsonEncoderDecoder[model.RunState](),
		logEncDec: util.NewJsonEncoderDecoder[model.ExecutionLogEntry](),
		defEncDec: util.NewJsonEncoderDecoder[model.FlowDefinition](),
	}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) key(args ...string) []byte {
	key := s.namespace
	for _, a := range args {
		key += ":" + a
	}
	return []byte(key)
}

func (s *Storage) set(key []byte, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *Storage) get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Storage) SaveRunState(state *model.RunState) error {
	data, err := s.runEncDec.Encode(*state)
	if err != nil {
		return err
	}
	return s.set(s.key("RUN", state.RunId), data)
}

func (s *Storage) GetRunState(runId string) (*model.RunState, error) {
	data, err := s.get(s.key("RUN", runId))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, persistence.RunNotFoundError{RunId: runId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.runEncDec.Decode(data)
}

func (s *Storage) DeleteRunState(runId string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.key("RUN", runId)); err != nil {
			return err
		}
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := s.key("RUNLOG", runId)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	s.logSeq.Delete(runId)
	return nil
}

func (s *Storage) AppendLogEntry(runId string, entry model.ExecutionLogEntry) error {
	data, err := s.logEncDec.Encode(entry)
	if err != nil {
		return err
	}
	seqVal, _ := s.logSeq.LoadOrStore(runId, new(int64))
	seq := seqVal.(*int64)
	next := time.Now().UnixNano()
	if next <= *seq {
		next = *seq + 1
	}
	*seq = next
	return s.set(s.key("RUNLOG", runId, fmt.Sprintf("%020d", next)), data)
}

func (s *Storage) GetLogEntries(runId string) ([]model.ExecutionLogEntry, error) {
	var entries []model.ExecutionLogEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := s.key("RUNLOG", runId)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entry, err := s.logEncDec.Decode(data)
			if err != nil {
				return err
			}
			entries = append(entries, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return entries, nil
}

func (s *Storage) SaveFlowDefinition(def *model.FlowDefinition, raw []byte) error {
	data, err := s.defEncDec.Encode(*def)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(s.key("FLOWDEF", def.Id), data); err != nil {
			return err
		}
		return txn.Set(s.key("FLOWDEF_RAW", def.Id), raw)
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *Storage) GetFlowDefinition(flowId string) (*model.FlowDefinition, error) {
	data, err := s.get(s.key("FLOWDEF", flowId))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, persistence.DefinitionNotFoundError{FlowId: flowId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.defEncDec.Decode(data)
}

func (s *Storage) GetRawFlowDefinition(flowId string) ([]byte, error) {
	data, err := s.get(s.key("FLOWDEF_RAW", flowId))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, persistence.DefinitionNotFoundError{FlowId: flowId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return data, nil
}

func (s *Storage) DeleteFlowDefinition(flowId string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.key("FLOWDEF", flowId)); err != nil {
			return err
		}
		return txn.Delete(s.key("FLOWDEF_RAW", flowId))
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *Storage) PushWithDelay(queueName string, partition string, delay time.Duration, message []byte) error {
	fireAt := time.Now().Add(delay).UnixMilli()
	key := s.key("DELAY", queueName, partition, fmt.Sprintf("%020d", fireAt), uuid.New().String())
	return s.set(key, message)
}

func (s *Storage) Pop(queueName string, partition string) ([]string, error) {
	now := time.Now().UnixMilli()
	var due []string
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := s.key("DELAY", queueName, partition)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			fireAt, err := fireAtFromKey(key, prefix)
			if err != nil || fireAt > now {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			due = append(due, string(value))
			keys = append(keys, key)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return due, nil
}

func fireAtFromKey(key []byte, prefix []byte) (int64, error) {
	rest := string(key[len(prefix)+1:])
	return strconv.ParseInt(rest[:20], 10, 64)
}

func (s *Storage) Acquire(runId string, ttl time.Duration) (bool, error) {
	deadline := time.Now().Add(ttl)
	actual, loaded := s.locks.LoadOrStore(runId, deadline)
	if !loaded {
		return true, nil
	}
	if time.Now().After(actual.(time.Time)) {
		s.locks.Store(runId, deadline)
		return true, nil
	}
	return false, nil
}

func (s *Storage) Release(runId string) error {
	s.locks.Delete(runId)
	return nil
}

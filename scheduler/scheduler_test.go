package scheduler

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence/inmem"
)

type fakeResumer struct {
	resumed chan string
}

func (r *fakeResumer) ResumeFlow(ctx context.Context, runId string, event model.Event) (*model.RunResult, error) {
	if event.Type != model.EVENT_DELAY_ELAPSED {
		panic("unexpected event type " + string(event.Type))
	}
	r.resumed <- runId
	return &model.RunResult{RunId: runId, Status: model.RUN_STATUS_COMPLETED}, nil
}

func TestPartitionIsStable(t *testing.T) {
	wg := &sync.WaitGroup{}
	a := New(Config{Partitions: 4}, inmem.NewStorage(), wg)
	b := New(Config{Partitions: 4}, inmem.NewStorage(), wg)
	for _, runId := range []string{"run-1", "run-2", "c0a1b2d3"} {
		require.Equal(t, a.Partition(runId), b.Partition(runId))
		p, err := strconv.Atoi(a.Partition(runId))
		require.NoError(t, err)
		require.GreaterOrEqual(t, p, 0)
		require.Less(t, p, 4)
	}
}

func TestScheduleAndPop(t *testing.T) {
	storage := inmem.NewStorage()
	s := New(Config{Partitions: 2}, storage, &sync.WaitGroup{})

	require.NoError(t, s.Schedule("run-early", time.Now().Add(-time.Second)))
	require.NoError(t, s.Schedule("run-late", time.Now().Add(time.Hour)))

	due, err := storage.Pop(DELAY_QUEUE_NAME, s.Partition("run-early"))
	require.NoError(t, err)
	require.Contains(t, due, "run-early")
	require.NotContains(t, due, "run-late")

	// not due yet, stays queued
	due, err = storage.Pop(DELAY_QUEUE_NAME, s.Partition("run-late"))
	require.NoError(t, err)
	require.NotContains(t, due, "run-late")
}

func TestSchedulerResumesDueRuns(t *testing.T) {
	storage := inmem.NewStorage()
	wg := &sync.WaitGroup{}
	s := New(Config{Partitions: 2, PollInterval: 1}, storage, wg)
	resumer := &fakeResumer{resumed: make(chan string, 4)}
	s.Start(resumer)
	defer s.Stop()

	require.NoError(t, s.Schedule("run-due", time.Now()))

	select {
	case runId := <-resumer.resumed:
		require.Equal(t, "run-due", runId)
	case <-time.After(5 * time.Second):
		t.Fatal("due run was not resumed")
	}
}

// lockedOnceResumer rejects the first attempt the way a concurrently
// locked run does, then succeeds.
type lockedOnceResumer struct {
	mu       sync.Mutex
	attempts int
	resumed  chan string
}

func (r *lockedOnceResumer) ResumeFlow(ctx context.Context, runId string, event model.Event) (*model.RunResult, error) {
	r.mu.Lock()
	r.attempts++
	attempt := r.attempts
	r.mu.Unlock()
	if attempt == 1 {
		return nil, flow.RunLockedError{RunId: runId}
	}
	r.resumed <- runId
	return &model.RunResult{RunId: runId, Status: model.RUN_STATUS_COMPLETED}, nil
}

func TestFailedResumeIsRetried(t *testing.T) {
	storage := inmem.NewStorage()
	wg := &sync.WaitGroup{}
	s := New(Config{Partitions: 1, PollInterval: 1}, storage, wg)
	resumer := &lockedOnceResumer{resumed: make(chan string, 1)}
	s.Start(resumer)
	defer s.Stop()

	require.NoError(t, s.Schedule("run-contended", time.Now()))

	select {
	case runId := <-resumer.resumed:
		require.Equal(t, "run-contended", runId)
	case <-time.After(8 * time.Second):
		t.Fatal("resume rejected by the run lock was never retried")
	}
	resumer.mu.Lock()
	defer resumer.mu.Unlock()
	require.Equal(t, 2, resumer.attempts)
}

type notWaitingResumer struct {
	mu       sync.Mutex
	attempts int
}

func (r *notWaitingResumer) ResumeFlow(ctx context.Context, runId string, event model.Event) (*model.RunResult, error) {
	r.mu.Lock()
	r.attempts++
	r.mu.Unlock()
	return nil, flow.NotWaitingError{RunId: runId, Status: string(model.RUN_STATUS_COMPLETED)}
}

func TestResumeOfFinishedRunIsNotRetried(t *testing.T) {
	storage := inmem.NewStorage()
	wg := &sync.WaitGroup{}
	s := New(Config{Partitions: 1, PollInterval: 1}, storage, wg)
	resumer := &notWaitingResumer{}
	s.Start(resumer)
	defer s.Stop()

	require.NoError(t, s.Schedule("run-finished", time.Now()))

	// long enough for several poll ticks to pass
	time.Sleep(3500 * time.Millisecond)
	resumer.mu.Lock()
	defer resumer.mu.Unlock()
	require.Equal(t, 1, resumer.attempts)

	due, err := storage.Pop(DELAY_QUEUE_NAME, s.Partition("run-finished"))
	require.NoError(t, err)
	require.Empty(t, due)
}

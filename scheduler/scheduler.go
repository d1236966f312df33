// Package scheduler resumes delay-suspended runs. Resume requests live
// in a partitioned delay queue; one tick worker per partition pops due
// requests and hands them to a worker that re-invokes the engine with a
// delay_elapsed event.
package scheduler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
	"github.com/waflow/waflow/collaborator"
	"github.com/waflow/waflow/flow"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	"github.com/waflow/waflow/util"
	"go.uber.org/zap"
)

const DELAY_QUEUE_NAME = "delay_resume"

type Resumer interface {
	ResumeFlow(ctx context.Context, runId string, event model.Event) (*model.RunResult, error)
}

type Config struct {
	Partitions   int
	PollInterval int
}

type Scheduler struct {
	conf        Config
	queue       persistence.DelayQueue
	resumer     Resumer
	wg          *sync.WaitGroup
	worker      *util.Worker
	tickWorkers []*util.TickWorker
}

var _ collaborator.ResumeScheduler = new(Scheduler)

func New(conf Config, queue persistence.DelayQueue, wg *sync.WaitGroup) *Scheduler {
	if conf.Partitions <= 0 {
		conf.Partitions = 1
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = 1
	}
	return &Scheduler{
		conf:  conf,
		queue: queue,
		wg:    wg,
	}
}

// Schedule enqueues a resume request due at resumeAt. A run id always
// hashes to the same partition, so duplicate schedules collapse onto
// one poller.
func (s *Scheduler) Schedule(runId string, resumeAt time.Time) error {
	partition := s.Partition(runId)
	return s.queue.PushWithDelay(DELAY_QUEUE_NAME, partition, time.Until(resumeAt), []byte(runId))
}

func (s *Scheduler) Partition(runId string) string {
	return strconv.Itoa(int(murmur3.Sum32([]byte(runId)) % uint32(s.conf.Partitions)))
}

func (s *Scheduler) Start(resumer Resumer) {
	s.resumer = resumer
	s.worker = util.NewWorker("delay-resume-worker", s.wg, s.handle, 128)
	s.worker.Start()
	for i := 0; i < s.conf.Partitions; i++ {
		partition := strconv.Itoa(i)
		tw := util.NewTickWorker("delay-poller-"+partition, s.conf.PollInterval, make(chan struct{}), func() {
			s.poll(partition)
		}, s.wg)
		tw.Start()
		s.tickWorkers = append(s.tickWorkers, tw)
	}
	logger.Info("delay scheduler started", zap.Int("partitions", s.conf.Partitions))
}

func (s *Scheduler) Stop() error {
	for _, tw := range s.tickWorkers {
		tw.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	return nil
}

func (s *Scheduler) poll(partition string) {
	due, err := s.queue.Pop(DELAY_QUEUE_NAME, partition)
	if err != nil {
		logger.Error("error while polling delay queue", zap.String("partition", partition), zap.Error(err))
		return
	}
	for _, runId := range due {
		s.worker.Sender() <- util.Task(runId)
	}
}

// handle resumes one due run. Pop already removed the request from the
// queue, so a failed resume must be re-enqueued or the run would stay
// waiting_delay forever. A run that is no longer waiting needs no
// resume and is dropped.
func (s *Scheduler) handle(task util.Task) error {
	runId := task.(string)
	_, err := s.resumer.ResumeFlow(context.Background(), runId, model.Event{Type: model.EVENT_DELAY_ELAPSED})
	if err != nil {
		var notWaiting flow.NotWaitingError
		if errors.As(err, &notWaiting) {
			logger.Info("delayed run no longer waiting, dropping resume",
				zap.String("runId", runId), zap.String("status", notWaiting.Status))
			return nil
		}
		retryAt := time.Now().Add(time.Duration(s.conf.PollInterval) * time.Second)
		logger.Error("error resuming delayed run, rescheduling",
			zap.String("runId", runId), zap.Time("retryAt", retryAt), zap.Error(err))
		if qErr := s.Schedule(runId, retryAt); qErr != nil {
			logger.Error("error rescheduling delayed run", zap.String("runId", runId), zap.Error(qErr))
			return qErr
		}
		return nil
	}
	return nil
}

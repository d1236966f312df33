// Package agent assembles the process: storage container, engine,
// delay scheduler and the REST server.
package agent

import (
	"sync"
	"time"

	"github.com/waflow/waflow/analytics"
	"github.com/waflow/waflow/collaborator"
	"github.com/waflow/waflow/collaborator/httpcall"
	"github.com/waflow/waflow/collaborator/outbound"
	"github.com/waflow/waflow/config"
	"github.com/waflow/waflow/container"
	"github.com/waflow/waflow/engine"
	"github.com/waflow/waflow/logger"
	"github.com/waflow/waflow/rest"
	"github.com/waflow/waflow/scheduler"
	"github.com/waflow/waflow/service"
)

type Agent struct {
	Config           config.Config
	container        *container.DIContainer
	engine           *engine.Engine
	scheduler        *scheduler.Scheduler
	executionService *service.ExecutionService
	httpServer       *rest.Server
	shutdown         bool
	shutdowns        chan struct{}
	shutdownLock     sync.Mutex
	wg               sync.WaitGroup
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config:    conf,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupContainer,
		a.setupEngine,
		a.setupScheduler,
		a.setupExecutionService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer()
	return a.container.Init(a.Config)
}

func (a *Agent) setupEngine() error {
	var sender collaborator.MessageSender
	if a.Config.SenderWebhookUrl != "" {
		sender = outbound.NewSender(a.Config.SenderWebhookUrl, time.Duration(a.Config.SendTimeoutSecs)*time.Second)
	} else {
		sender = collaborator.NewRecordingSender()
	}
	a.engine = engine.New(
		engine.Config{
			MaxNodeVisits:    a.Config.MaxNodeVisits,
			MaxInputAttempts: a.Config.MaxInputAttempts,
		},
		a.container.GetMetadataService(),
		a.container.GetRunStorage(),
		a.container.GetRunLocker(),
		sender,
		httpcall.NewCaller(),
		collaborator.LoggingMutator{},
	)
	if a.Config.AnalyticsLogFile != "" {
		collector, err := analytics.NewLogFileDataCollector(a.Config.AnalyticsLogFile)
		if err != nil {
			return err
		}
		a.engine.SetDataCollector(collector)
	}
	return nil
}

func (a *Agent) setupScheduler() error {
	a.scheduler = scheduler.New(scheduler.Config{
		Partitions:   a.Config.DelayPartitions,
		PollInterval: a.Config.DelayPollInterval,
	}, a.container.GetDelayQueue(), &a.wg)
	a.engine.SetScheduler(a.scheduler)
	return nil
}

func (a *Agent) setupExecutionService() error {
	a.executionService = service.NewExecutionService(a.engine, a.container.GetRunStorage())
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.container.GetMetadataService(), a.executionService)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.scheduler.Start(a.engine)
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
		a.scheduler.Stop,
		a.container.Close,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}

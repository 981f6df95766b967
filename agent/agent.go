package agent

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mohitkumar/orchy-console/analytics"
	"github.com/mohitkumar/orchy-console/bpmn"
	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/config"
	"github.com/mohitkumar/orchy-console/graph"
	"github.com/mohitkumar/orchy-console/logger"
	"github.com/mohitkumar/orchy-console/persistence/memory"
	"github.com/mohitkumar/orchy-console/persistence/redis"
	"github.com/mohitkumar/orchy-console/rest"
	"go.uber.org/zap"
)

const REDIS_CONNECT_RETRIES = 3

type Agent struct {
	Config       config.Config
	store        command.Service
	storeCloser  io.Closer
	collector    analytics.CommandCollector
	console      *bpmn.Console
	graphView    *graph.View
	hub          *rest.Hub
	httpServer   *rest.Server
	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupLogger,
		a.setupStore,
		a.setupCollector,
		a.setupConsole,
		a.setupGraphView,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			a.release()
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupLogger() error {
	if a.Config.LogLevel == "" && !a.Config.Development {
		return nil
	}
	return logger.Init(a.Config.LogLevel, a.Config.Development)
}

func (a *Agent) setupStore() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_INMEM:
		a.store = memory.NewStore()
	case config.STORAGE_TYPE_REDIS, "":
		rc := a.Config.RedisConfig
		store, err := redis.NewRedisEntityStore(context.Background(), redis.Config{
			Addrs:          rc.Addrs,
			Namespace:      rc.Namespace,
			Password:       rc.Password,
			PoolSize:       rc.PoolSize,
			PartitionCount: rc.PartitionCount,
			ConnectRetries: REDIS_CONNECT_RETRIES,
		})
		if err != nil {
			return err
		}
		a.store = store
		a.storeCloser = store
	default:
		return fmt.Errorf("unknown storage type %s", a.Config.StorageType)
	}
	logger.Info("storage initialized", zap.String("type", string(a.Config.StorageType)))
	return nil
}

func (a *Agent) setupCollector() error {
	collector, err := analytics.InitDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	a.collector = collector
	a.store = analytics.Audited(a.store, collector)
	return nil
}

func (a *Agent) setupConsole() error {
	cc := a.Config.ConsoleConfig
	a.console = bpmn.New(a.store, bpmn.Options{
		PollInterval:     a.Config.GetPollInterval(),
		SchemaType:       cc.SchemaType,
		ProcessBaseClass: cc.ProcessBaseClass,
		InactiveMarker:   cc.InactiveMarker,
	})
	return nil
}

func (a *Agent) setupGraphView() error {
	a.graphView = graph.NewView(a.store, graph.Options{})
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.hub = rest.NewHub()
	a.hub.Attach(a.console.Rows(), a.graphView)
	var audit analytics.RecordReader
	if reader, ok := a.collector.(analytics.RecordReader); ok {
		audit = reader
	}
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.console, a.graphView, audit, a.hub)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			go a.Shutdown()
		}
	}()
	return nil
}

// release closes whatever setup managed to open before failing.
func (a *Agent) release() {
	if a.collector != nil {
		a.collector.Close()
	}
	if a.storeCloser != nil {
		a.storeCloser.Close()
	}
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down console")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			a.console.Dispose()
			a.graphView.Dispose()
			return nil
		},
		a.collector.Close,
		func() error {
			if a.storeCloser == nil {
				return nil
			}
			return a.storeCloser.Close()
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	logger.Sync()
	return nil
}

package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/mohitkumar/orchy-console/logger"
	"github.com/mohitkumar/orchy-console/util"
	"go.uber.org/zap"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const NOOP_DATA_COLLECTOR DataCollectorType = ""
const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const SQLITE_DATA_COLLECTOR DataCollectorType = "SQLITE_DATA_COLLECTOR"

const DEFAULT_QUEUE_CAPACITY = 256

// Record is one mutating command sent to the backend.
type Record struct {
	Time     time.Time      `json:"time"`
	Command  string         `json:"command"`
	EntityId string         `json:"entityId"`
	Detail   map[string]any `json:"detail,omitempty"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
}

type CommandCollector interface {
	Record(rec Record)
	Close() error
}

// RecordReader is implemented by collectors that can read back what they stored.
type RecordReader interface {
	Recent(ctx context.Context, limit int) ([]Record, error)
}

type sink interface {
	write(rec Record) error
	close() error
}

// asyncCollector hands records to a sink through a worker so callers never block on I/O.
type asyncCollector struct {
	sink   sink
	worker *util.Worker
	wg     sync.WaitGroup
}

func newAsyncCollector(name string, s sink) *asyncCollector {
	c := &asyncCollector{sink: s}
	c.worker = util.NewWorker(name, &c.wg, func(a util.Action) error {
		return s.write(a.(Record))
	}, DEFAULT_QUEUE_CAPACITY)
	c.worker.Start()
	return c
}

func (c *asyncCollector) Record(rec Record) {
	select {
	case c.worker.Sender() <- rec:
	default:
		logger.Warn("command log queue full, dropping record", zap.String("command", rec.Command), zap.String("id", rec.EntityId))
	}
}

func (c *asyncCollector) Close() error {
	c.worker.Stop()
	c.wg.Wait()
	return c.sink.close()
}

type noopCollector struct{}

func (noopCollector) Record(rec Record) {}

func (noopCollector) Close() error { return nil }

func InitDataCollector(config DataCollectorConfig) (CommandCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	case SQLITE_DATA_COLLECTOR:
		return NewSqliteDataCollector(config.FileName)
	}
	return noopCollector{}, nil
}

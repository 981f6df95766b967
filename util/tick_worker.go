package util

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohitkumar/orchy-console/logger"
	"go.uber.org/zap"
)

// TickWorker runs fn once on start and then on every tick until stopped.
// Runs never overlap. Once Stop returns no new run begins.
type TickWorker struct {
	stop         chan struct{}
	stopOnce     sync.Once
	stopped      atomic.Bool
	tickInterval time.Duration
	wg           *sync.WaitGroup
	name         string
	fn           func()
	running      atomic.Bool
}

func NewTickWorker(name string, interval time.Duration, fn func(), wg *sync.WaitGroup) *TickWorker {
	return &TickWorker{
		stop:         make(chan struct{}),
		tickInterval: interval,
		wg:           wg,
		fn:           fn,
		name:         name,
	}
}

func (tw *TickWorker) Start() {
	tw.wg.Add(1)
	tw.running.Store(true)
	go func() {
		defer tw.wg.Done()
		defer tw.running.Store(false)
		ticker := time.NewTicker(tw.tickInterval)
		defer ticker.Stop()
		if !tw.run() {
			return
		}
		for {
			select {
			case <-ticker.C:
				if !tw.run() {
					return
				}
			case <-tw.stop:
				logger.Debug("stopping tick worker", zap.String("worker", tw.name))
				return
			}
		}
	}()
	logger.Debug("tick worker started", zap.String("worker", tw.name), zap.Duration("interval", tw.tickInterval))
}

func (tw *TickWorker) run() bool {
	if tw.stopped.Load() {
		return false
	}
	tw.fn()
	return true
}

// Stop does not wait for a run in progress, so it is safe to call from fn.
func (tw *TickWorker) Stop() {
	tw.stopOnce.Do(func() {
		tw.stopped.Store(true)
		close(tw.stop)
	})
}

func (tw *TickWorker) IsRunning() bool {
	return tw.running.Load()
}

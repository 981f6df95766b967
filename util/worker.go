package util

import (
	"sync"

	"github.com/mohitkumar/orchy-console/logger"
	"go.uber.org/zap"
)

type Action any

// Worker feeds actions from a buffered channel to handler on one goroutine.
type Worker struct {
	name       string
	stop       chan struct{}
	stopOnce   sync.Once
	wg         *sync.WaitGroup
	handler    func(Action) error
	actionChan chan Action
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		for {
			select {
			case action := <-w.actionChan:
				w.handle(action)
			case <-w.stop:
				w.drain()
				logger.Info("stopping worker", zap.String("worker", w.name))
				return
			}
		}
	}()
}

func (w *Worker) handle(action Action) {
	if err := w.handler(action); err != nil {
		logger.Error("error in executing action in worker", zap.String("worker", w.name), zap.Any("action", action), zap.Error(err))
	}
}

func (w *Worker) drain() {
	for {
		select {
		case action := <-w.actionChan:
			w.handle(action)
		default:
			return
		}
	}
}

func (w *Worker) Sender() chan<- Action {
	return w.actionChan
}

// Stop handles whatever is still queued, then ends the loop.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
}

func NewWorker(name string, wg *sync.WaitGroup, handler func(Action) error, capacity int) *Worker {
	return &Worker{
		actionChan: make(chan Action, capacity),
		name:       name,
		wg:         wg,
		stop:       make(chan struct{}),
		handler:    handler,
	}
}

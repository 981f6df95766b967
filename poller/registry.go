package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohitkumar/orchy-console/logger"
	"github.com/mohitkumar/orchy-console/util"
	"go.uber.org/zap"
)

const DEFAULT_INTERVAL = 200 * time.Millisecond

// Func fetches the latest state of id and re-renders it in place.
// ctx is cancelled when the registration is cancelled.
type Func func(ctx context.Context, id string) error

type ClosedError struct{}

func (e ClosedError) Error() string {
	return "poll registry is closed"
}

type poll struct {
	worker *util.TickWorker
	cancel context.CancelFunc
}

func (p *poll) stop() {
	p.worker.Stop()
	p.cancel()
}

// Registry keeps at most one active poll per id.
type Registry struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	pollers map[string]*poll
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{
		pollers: make(map[string]*poll),
	}
}

// Register replaces any poll already running for id. fn runs once right away on
// its own goroutine and then every interval until Cancel. Errors from fn are
// logged and do not stop the schedule.
func (r *Registry) Register(id string, fn Func, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", interval)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ClosedError{}
	}
	if existing, ok := r.pollers[id]; ok {
		existing.stop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &poll{cancel: cancel}
	p.worker = util.NewTickWorker("poll:"+id, interval, func() {
		if err := fn(ctx, id); err != nil {
			logger.Warn("error in poll", zap.String("id", id), zap.Error(err))
		}
	}, &r.wg)
	r.pollers[id] = p
	p.worker.Start()
	return nil
}

// Cancel stops polling id. It is a no-op for unknown ids and may be called from fn.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pollers[id]; ok {
		p.stop()
		delete(r.pollers, id)
	}
}

func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelAll()
}

func (r *Registry) cancelAll() {
	for id, p := range r.pollers {
		p.stop()
		delete(r.pollers, id)
	}
}

func (r *Registry) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pollers[id]
	return ok
}

func (r *Registry) Ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.pollers))
	for id := range r.pollers {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pollers)
}

// Close cancels every poll and waits for the loops to exit. Must not be called from a Func.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.cancelAll()
	r.mu.Unlock()
	r.wg.Wait()
}

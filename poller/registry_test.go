package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type counter struct {
	calls atomic.Int32
}

func (c *counter) fn(ctx context.Context, id string) error {
	c.calls.Add(1)
	return nil
}

func (c *counter) get() int {
	return int(c.calls.Load())
}

func TestRegistry(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, r *Registry){
		"first call is immediate":               testImmediateCall,
		"re-register keeps one timer":           testReRegister,
		"cancel all stops every poll":           testCancelAll,
		"caller cancels on terminal state":      testCancelOnTerminal,
		"errors do not stop the schedule":       testErrorsKeepPolling,
		"cancel of unknown id is no-op":         testCancelUnknown,
		"cancel cancels the invocation context": testContextCancelled,
		"invalid interval is rejected":          testInvalidInterval,
	} {
		t.Run(scenario, func(t *testing.T) {
			r := NewRegistry()
			defer r.Close()
			fn(t, r)
		})
	}
}

func testImmediateCall(t *testing.T, r *Registry) {
	c := &counter{}
	require.NoError(t, r.Register("p1", c.fn, time.Hour))
	require.Eventually(t, func() bool { return c.get() == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, r.Active("p1"))
}

func testReRegister(t *testing.T, r *Registry) {
	interval := 100 * time.Millisecond
	first := &counter{}
	second := &counter{}

	require.NoError(t, r.Register("p1", first.fn, interval))
	require.Eventually(t, func() bool { return first.get() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, r.Register("p1", second.fn, interval))
	require.Eventually(t, func() bool { return second.get() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, 1, r.Len())

	time.Sleep(interval + interval/2)
	require.Equal(t, 1, first.get())
	require.Equal(t, 2, second.get())
}

func testCancelAll(t *testing.T, r *Registry) {
	interval := 20 * time.Millisecond
	counters := map[string]*counter{"a": {}, "b": {}, "c": {}}
	for id, c := range counters {
		require.NoError(t, r.Register(id, c.fn, interval))
	}
	time.Sleep(3 * interval)

	r.CancelAll()
	require.Equal(t, 0, r.Len())
	before := map[string]int{}
	for id, c := range counters {
		before[id] = c.get()
		require.GreaterOrEqual(t, before[id], 1)
	}

	time.Sleep(5 * interval)
	for id, c := range counters {
		require.Equal(t, before[id], c.get(), id)
	}
}

func testCancelOnTerminal(t *testing.T, r *Registry) {
	interval := 200 * time.Millisecond
	var calls atomic.Int32
	fn := func(ctx context.Context, id string) error {
		n := calls.Add(1)
		finished := n >= 2
		if finished {
			r.Cancel(id)
		}
		return nil
	}
	require.NoError(t, r.Register("p1", fn, interval))

	time.Sleep(5 * interval)
	require.Equal(t, int32(2), calls.Load())
	require.False(t, r.Active("p1"))
}

func testErrorsKeepPolling(t *testing.T, r *Registry) {
	var calls atomic.Int32
	fn := func(ctx context.Context, id string) error {
		calls.Add(1)
		return errors.New("entity not found")
	}
	require.NoError(t, r.Register("gone", fn, 10*time.Millisecond))
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.True(t, r.Active("gone"))
}

func testCancelUnknown(t *testing.T, r *Registry) {
	r.Cancel("missing")
	require.Equal(t, 0, r.Len())
}

func testContextCancelled(t *testing.T, r *Registry) {
	started := make(chan struct{})
	done := make(chan error, 1)
	fn := func(ctx context.Context, id string) error {
		close(started)
		<-ctx.Done()
		done <- ctx.Err()
		return nil
	}
	require.NoError(t, r.Register("slow", fn, time.Hour))
	<-started
	r.Cancel("slow")
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
}

func testInvalidInterval(t *testing.T, r *Registry) {
	c := &counter{}
	require.Error(t, r.Register("p1", c.fn, 0))
	require.Equal(t, 0, r.Len())
}

func TestRegisterAfterClose(t *testing.T) {
	r := NewRegistry()
	r.Close()
	c := &counter{}
	err := r.Register("p1", c.fn, time.Second)
	require.ErrorAs(t, err, &ClosedError{})
}

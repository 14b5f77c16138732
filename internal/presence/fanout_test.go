package presence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrweisheng/wscontroller/internal/presence"
	"github.com/mrweisheng/wscontroller/internal/registry"
	"github.com/mrweisheng/wscontroller/internal/registry/registrytest"
)

type collector struct {
	mu     sync.Mutex
	events []registry.Event
}

func (c *collector) Deliver(_ context.Context, ev registry.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.DeviceID
	}
	return out
}

func TestFanout_DeliversInOrderToEverySink(t *testing.T) {
	f := presence.NewFanout(16)
	a, b := &collector{}, &collector{}
	f.AddSink("a", a)
	f.AddSink("b", b)
	assert.Equal(t, []string{"a", "b"}, f.Sinks())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = f.Run(ctx)
		close(done)
	}()

	for _, id := range []string{"1", "2", "3"} {
		f.Observe(registry.Event{Kind: registry.EventConnected, DeviceID: id})
	}

	require.Eventually(t, func() bool { return b.len() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"1", "2", "3"}, a.ids())
	assert.Equal(t, []string{"1", "2", "3"}, b.ids())
}

func TestFanout_FailingSinkDoesNotStopOthers(t *testing.T) {
	f := presence.NewFanout(4)
	ok := &collector{}
	f.AddSink("broken", presence.SinkFunc(func(context.Context, registry.Event) error {
		return errors.New("unavailable")
	}))
	f.AddSink("ok", ok)

	f.Observe(registry.Event{DeviceID: "042"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Run(ctx))

	assert.Equal(t, []string{"042"}, ok.ids())
}

func TestFanout_DropsWhenFull(t *testing.T) {
	f := presence.NewFanout(2)
	c := &collector{}
	f.AddSink("c", c)

	for i := 0; i < 5; i++ {
		f.Observe(registry.Event{DeviceID: "x"})
	}
	assert.Equal(t, uint64(3), f.Dropped())

	// Run with a cancelled context still drains the queue.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Run(ctx))
	assert.Equal(t, 2, c.len())
}

func TestFanout_AsRegistryObserver(t *testing.T) {
	f := presence.NewFanout(0)
	c := &collector{}
	f.AddSink("c", c)

	reg := registry.New()
	reg.SetObserver(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	rec := registry.NewRecord(registrytest.NewConn("10.0.0.1:5000"), time.Now())
	reg.Put("tmp", rec)
	reg.Remove("tmp", registry.ReasonClosed)

	require.Eventually(t, func() bool { return c.len() == 2 }, time.Second, 5*time.Millisecond)
}

package presence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrweisheng/wscontroller/internal/registry"
)

const (
	// DefaultBuffer is the queue length used when NewFanout gets zero.
	DefaultBuffer = 256

	// drainTimeout bounds delivery of queued events after Run is cancelled.
	drainTimeout = 5 * time.Second
)

// Logger defines the logging interface used by Fanout.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives registry events from the Fanout goroutine.
type Sink interface {
	Deliver(ctx context.Context, ev registry.Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev registry.Event) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, ev registry.Event) error { return f(ctx, ev) }

type namedSink struct {
	name string
	sink Sink
}

// Fanout is a registry.Observer that forwards events to sinks asynchronously.
type Fanout struct {
	events chan registry.Event
	logger Logger

	mu    sync.RWMutex
	sinks []namedSink

	dropped atomic.Uint64
}

// NewFanout creates a fanout with a queue of buffer events.
func NewFanout(buffer int) *Fanout {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Fanout{
		events: make(chan registry.Event, buffer),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for delivery failures.
func (f *Fanout) SetLogger(logger Logger) {
	f.logger = logger
}

// AddSink registers s under name. Sinks added after Run starts receive
// only later events.
func (f *Fanout) AddSink(name string, s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, namedSink{name: name, sink: s})
}

// Sinks returns the registered sink names.
func (f *Fanout) Sinks() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.name
	}
	return names
}

// Observe implements registry.Observer. It never blocks.
func (f *Fanout) Observe(ev registry.Event) {
	select {
	case f.events <- ev:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (f *Fanout) Dropped() uint64 {
	return f.dropped.Load()
}

// Run delivers events until ctx is cancelled, then drains what is already
// queued. It always returns nil.
func (f *Fanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			f.drain()
			return nil
		case ev := <-f.events:
			f.deliver(ctx, ev)
		}
	}
}

func (f *Fanout) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-f.events:
			f.deliver(ctx, ev)
		default:
			if n := f.dropped.Load(); n > 0 {
				f.logger.Warn("presence events dropped", "count", n)
			}
			return
		}
	}
}

func (f *Fanout) deliver(ctx context.Context, ev registry.Event) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()

	for _, s := range sinks {
		if err := s.sink.Deliver(ctx, ev); err != nil {
			f.logger.Warn("presence sink failed",
				"sink", s.name,
				"kind", string(ev.Kind),
				"device_id", ev.DeviceID,
				"error", err,
			)
		}
	}
}

package telemetry

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/influxdb"
	"github.com/mrweisheng/wscontroller/internal/liveness"
	"github.com/mrweisheng/wscontroller/internal/registry"
	"github.com/mrweisheng/wscontroller/internal/relay"
)

// PointWriter queues points without blocking. *influxdb.Client implements it.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Writer implements relay.Recorder, liveness.Reporter, and presence.Sink.
type Writer struct {
	points PointWriter
	now    func() time.Time
}

// New creates a writer over points.
func New(points PointWriter) *Writer {
	return &Writer{points: points, now: time.Now}
}

// RecordRelay implements relay.Recorder.
func (w *Writer) RecordRelay(target, source string, outcome relay.Outcome, elapsed time.Duration) {
	w.points.WritePoint(influxdb.RelayPoint(target, source, string(outcome), elapsed, w.now()))
}

// RecordSweep implements liveness.Reporter.
func (w *Writer) RecordSweep(name string, stats liveness.Stats) {
	w.points.WritePoint(influxdb.SweepPoint(name, stats.Checked, stats.Probed, stats.Reaped, stats.Online, w.now()))
}

// Deliver implements presence.Sink.
func (w *Writer) Deliver(_ context.Context, ev registry.Event) error {
	at := ev.At
	if at.IsZero() {
		at = w.now()
	}
	w.points.WritePoint(influxdb.PresencePoint(string(ev.Kind), ev.DeviceID, string(ev.Reason), ev.Online, at))
	return nil
}

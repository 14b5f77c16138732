package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/mrweisheng/wscontroller/internal/infrastructure/config"
	"github.com/mrweisheng/wscontroller/internal/registry"
)

// Logger defines the logging interface used by the Monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reporter receives per-sweep statistics, typically for telemetry.
type Reporter interface {
	RecordSweep(name string, stats Stats)
}

// Params configures one monitor instance.
type Params struct {
	Name           string
	SweepInterval  time.Duration
	StaleAfter     time.Duration
	HardCloseAfter time.Duration
	PongGrace      time.Duration

	// Terminate drops reaped transports without a close handshake.
	Terminate bool
}

// ParamsFromConfig converts a configured sweep into monitor parameters.
func ParamsFromConfig(cfg config.SweepConfig) Params {
	return Params{
		Name:           cfg.Name,
		SweepInterval:  cfg.Interval,
		StaleAfter:     cfg.StaleAfter,
		HardCloseAfter: cfg.HardCloseAfter,
		PongGrace:      cfg.PongGrace,
		Terminate:      cfg.Terminate,
	}
}

// Stats counts what one sweep or probe check did.
type Stats struct {
	Checked int
	Probed  int
	Reaped  int
	Online  int
}

// probe is a pending liveness check. Every field is copied at probe time.
type probe struct {
	id          string
	rec         *registry.Record
	seenAtProbe time.Time
	due         time.Time
}

// Monitor periodically probes idle connections and reaps unresponsive ones.
type Monitor struct {
	params   Params
	registry *registry.Registry
	logger   Logger
	reporter Reporter
	now      func() time.Time

	mu      sync.Mutex
	probes  []probe
	pending map[*registry.Record]struct{}
}

// New creates a monitor over reg.
func New(params Params, reg *registry.Registry) *Monitor {
	return &Monitor{
		params:   params,
		registry: reg,
		logger:   noopLogger{},
		now:      time.Now,
		pending:  make(map[*registry.Record]struct{}),
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// SetReporter sets the receiver of sweep statistics.
func (m *Monitor) SetReporter(r Reporter) {
	m.reporter = r
}

// Name returns the instance name.
func (m *Monitor) Name() string {
	return m.params.Name
}

// Run sweeps every SweepInterval and checks probes as they fall due.
// It blocks until ctx is cancelled; a sweep in progress runs to completion.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.params.SweepInterval)
	defer ticker.Stop()

	probeTimer := time.NewTimer(time.Hour)
	probeTimer.Stop()
	defer probeTimer.Stop()

	m.logger.Info("liveness monitor started",
		"sweep", m.params.Name,
		"interval", m.params.SweepInterval,
		"stale_after", m.params.StaleAfter,
		"hard_close_after", m.params.HardCloseAfter,
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("liveness monitor stopped", "sweep", m.params.Name)
			return nil
		case <-ticker.C:
			m.Sweep(m.now())
		case <-probeTimer.C:
			m.CheckProbes(m.now())
		}

		if due, ok := m.nextDue(); ok {
			probeTimer.Reset(max(due.Sub(m.now()), 0))
		}
	}
}

// Sweep runs one pass over a snapshot of the registry at now.
func (m *Monitor) Sweep(now time.Time) Stats {
	var stats Stats

	m.registry.ForEach(func(id string, rec *registry.Record) {
		stats.Checked++
		conn := rec.Conn()

		if !conn.IsOpen() {
			if m.registry.RemoveRecord(rec, registry.ReasonNotOpen) {
				stats.Reaped++
			}
			return
		}

		silent := now.Sub(rec.LastSeen())
		if rec.DisconnectRequested() {
			stats.Reaped += m.reap(rec, registry.ReasonDisconnectRequested)
			return
		}
		if silent > m.params.HardCloseAfter {
			stats.Reaped += m.reap(rec, registry.ReasonHardTimeout)
			return
		}
		if silent <= m.params.StaleAfter || m.isPending(rec) {
			return
		}

		seen := rec.LastSeen()
		if err := conn.Ping(); err != nil {
			m.logger.Warn("liveness probe failed", "sweep", m.params.Name, "device_id", id, "error", err)
			stats.Reaped += m.reap(rec, registry.ReasonSendFailed)
			return
		}
		m.enqueue(probe{
			id:          id,
			rec:         rec,
			seenAtProbe: seen,
			due:         now.Add(m.params.PongGrace),
		})
		stats.Probed++
		m.logger.Debug("liveness probe sent", "sweep", m.params.Name, "device_id", id, "silent", silent)
	})

	stats.Online = m.registry.Size()
	m.logger.Info("liveness sweep complete",
		"sweep", m.params.Name,
		"online", stats.Online,
		"probed", stats.Probed,
		"reaped", stats.Reaped,
	)
	m.report(stats)
	return stats
}

// CheckProbes resolves every probe due at or before now.
func (m *Monitor) CheckProbes(now time.Time) Stats {
	var stats Stats

	for _, p := range m.takeDue(now) {
		stats.Checked++

		current, ok := m.registry.Get(p.rec.ID())
		if !ok || current != p.rec {
			continue
		}
		if !p.rec.Conn().IsOpen() {
			if m.registry.RemoveRecord(p.rec, registry.ReasonNotOpen) {
				stats.Reaped++
			}
			continue
		}
		if p.rec.LastSeen().After(p.seenAtProbe) {
			continue
		}

		m.logger.Warn("liveness probe unanswered", "sweep", m.params.Name, "device_id", p.id, "grace", m.params.PongGrace)
		stats.Reaped += m.reap(p.rec, registry.ReasonProbeUnanswered)
	}

	if stats.Checked > 0 {
		stats.Online = m.registry.Size()
		m.report(stats)
	}
	return stats
}

// Pending returns the number of probes awaiting their grace deadline.
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.probes)
}

// reap closes the record's transport and removes it. It returns 1 if this
// call removed the record, so concurrent reaps count once.
func (m *Monitor) reap(rec *registry.Record, reason registry.Reason) int {
	conn := rec.Conn()
	var err error
	if m.params.Terminate {
		err = conn.Terminate()
	} else {
		err = conn.Close()
	}
	if err != nil {
		m.logger.Debug("closing reaped connection", "sweep", m.params.Name, "device_id", rec.ID(), "error", err)
	}
	if m.registry.RemoveRecord(rec, reason) {
		return 1
	}
	return 0
}

func (m *Monitor) report(stats Stats) {
	if m.reporter != nil {
		m.reporter.RecordSweep(m.params.Name, stats)
	}
}

func (m *Monitor) isPending(rec *registry.Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[rec]
	return ok
}

func (m *Monitor) enqueue(p probe) {
	m.mu.Lock()
	m.probes = append(m.probes, p)
	m.pending[p.rec] = struct{}{}
	m.mu.Unlock()
}

// takeDue removes and returns the probes due at or before now.
func (m *Monitor) takeDue(now time.Time) []probe {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []probe
	kept := m.probes[:0]
	for _, p := range m.probes {
		if p.due.After(now) {
			kept = append(kept, p)
			continue
		}
		due = append(due, p)
		delete(m.pending, p.rec)
	}
	m.probes = kept
	return due
}

func (m *Monitor) nextDue() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var next time.Time
	for _, p := range m.probes {
		if next.IsZero() || p.due.Before(next) {
			next = p.due
		}
	}
	return next, !next.IsZero()
}

package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrweisheng/wscontroller/internal/protocol"
)

// Logger defines the logging interface used by the Registry.
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

// Registry maps device identifiers to live connection records.
//
// All public methods are thread-safe. SetLogger and SetObserver must be
// called before the registry is shared.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record

	logger   Logger
	observer Observer
	now      func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		records:  make(map[string]*Record),
		logger:   noopLogger{},
		observer: noopObserver{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetObserver sets the receiver of lifecycle events.
func (r *Registry) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	r.observer = o
}

// Put installs rec under id, evicting any different record that holds id.
// If rec was installed under another key, that mapping is dropped.
func (r *Registry) Put(id string, rec *Record) {
	r.mu.Lock()
	var events []Event
	if ev, ok := r.evictLocked(id, rec); ok {
		events = append(events, ev)
	}
	if prev := rec.ID(); prev != "" && prev != id && r.records[prev] == rec {
		delete(r.records, prev)
	}
	r.records[id] = rec
	rec.setID(id)
	events = append(events, Event{
		Kind:     EventConnected,
		DeviceID: id,
		Remote:   remoteOf(rec),
		Online:   len(r.records),
		At:       r.now(),
	})
	r.emitLocked(events)
	r.mu.Unlock()

	r.logger.Info("connection registered", "device_id", id, "remote", remoteOf(rec))
}

// Get returns the record installed under id.
func (r *Registry) Get(id string) (*Record, bool) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	return rec, ok
}

// Remove deletes the mapping for id. It reports whether anything was removed;
// removing an absent id is a no-op.
func (r *Registry) Remove(id string, reason Reason) bool {
	r.mu.Lock()
	rec, ok := r.records[id]
	if ok {
		delete(r.records, id)
		r.emitLocked([]Event{r.removedLocked(id, rec, reason)})
	}
	online := len(r.records)
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.logRemoval(id, reason, online)
	return true
}

// RemoveRecord deletes the mapping for rec's current id, but only while that
// id still maps to rec. A successor installed under the same id is left alone.
func (r *Registry) RemoveRecord(rec *Record, reason Reason) bool {
	r.mu.Lock()
	id := rec.ID()
	current, ok := r.records[id]
	removed := ok && current == rec
	if removed {
		delete(r.records, id)
		r.emitLocked([]Event{r.removedLocked(id, rec, reason)})
	}
	online := len(r.records)
	r.mu.Unlock()

	if !removed {
		return false
	}
	r.logRemoval(id, reason, online)
	return true
}

// Rename moves the record installed under oldID to newID.
//
// A different record already holding newID is sent a connection_replaced
// notice, closed, and dropped in the same critical section, so no reader sees
// the renamed record under both keys or under neither. The renamed connection
// is acknowledged with register_success once the lock is released. Renaming
// to the current id changes nothing but is still acknowledged.
func (r *Registry) Rename(oldID, newID string) error {
	if !ValidDeviceID(newID) {
		r.logger.Warn("rename rejected", "device_id", oldID, "proposed", newID)
		return fmt.Errorf("%w: %q", ErrInvalidDeviceID, newID)
	}

	r.mu.RLock()
	rec, ok := r.records[oldID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, oldID)
	}
	return r.RenameRecord(rec, newID)
}

// RenameRecord is Rename keyed by the record itself. It fails with
// ErrNotFound when rec is no longer installed, for example after it was
// evicted by another connection.
func (r *Registry) RenameRecord(rec *Record, newID string) error {
	if !ValidDeviceID(newID) {
		r.logger.Warn("rename rejected", "device_id", rec.ID(), "proposed", newID)
		return fmt.Errorf("%w: %q", ErrInvalidDeviceID, newID)
	}

	r.mu.Lock()
	oldID := rec.ID()
	if r.records[oldID] != rec {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, oldID)
	}

	var events []Event
	if oldID != newID {
		if ev, ok := r.evictLocked(newID, rec); ok {
			events = append(events, ev)
		}
		delete(r.records, oldID)
		r.records[newID] = rec
		rec.setID(newID)
		events = append(events, Event{
			Kind:     EventRenamed,
			DeviceID: newID,
			PrevID:   oldID,
			Remote:   remoteOf(rec),
			Online:   len(r.records),
			At:       r.now(),
		})
	}
	r.emitLocked(events)
	r.mu.Unlock()

	if len(events) > 0 {
		r.logger.Info("device registered", "device_id", newID, "prev_id", oldID)
	}

	if err := rec.Conn().Send(protocol.RegisterSuccess(newID)); err != nil {
		r.logger.Warn("register ack not sent", "device_id", newID, "error", err)
	}
	return nil
}

// evictLocked drops a record other than keep that holds id. The holder is
// notified and closed while the write lock is held. Caller holds r.mu.
func (r *Registry) evictLocked(id string, keep *Record) (Event, bool) {
	holder, ok := r.records[id]
	if !ok || holder == keep {
		return Event{}, false
	}

	conn := holder.Conn()
	if err := conn.Send(protocol.ConnectionReplaced()); err != nil {
		r.logger.Debug("replacement notice not sent", "device_id", id, "error", err)
	}
	if err := conn.Close(); err != nil {
		r.logger.Debug("closing replaced connection", "device_id", id, "error", err)
	}
	delete(r.records, id)

	return Event{
		Kind:     EventReplaced,
		DeviceID: id,
		Reason:   ReasonReplaced,
		Remote:   conn.RemoteAddr(),
		Online:   len(r.records),
		At:       r.now(),
	}, true
}

// Size returns the number of live mappings.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// ForEach calls fn for every (id, record) pair present when ForEach was
// called. The map is not locked while fn runs, so fn may mutate the registry.
func (r *Registry) ForEach(fn func(id string, rec *Record)) {
	type entry struct {
		id  string
		rec *Record
	}

	r.mu.RLock()
	entries := make([]entry, 0, len(r.records))
	for id, rec := range r.records {
		entries = append(entries, entry{id: id, rec: rec})
	}
	r.mu.RUnlock()

	for _, e := range entries {
		fn(e.id, e.rec)
	}
}

// Snapshot returns a copy of every record's state, sorted by device id.
func (r *Registry) Snapshot() []Info {
	infos := make([]Info, 0, r.Size())
	r.ForEach(func(_ string, rec *Record) {
		infos = append(infos, rec.Info())
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].DeviceID < infos[j].DeviceID
	})
	return infos
}

// CloseAll removes every record and closes its connection. It is used on
// shutdown and returns the number of connections closed.
func (r *Registry) CloseAll(reason Reason) int {
	closed := 0
	r.ForEach(func(_ string, rec *Record) {
		if r.RemoveRecord(rec, reason) {
			_ = rec.Conn().Close()
			closed++
		}
	})
	return closed
}

// removedLocked builds the removal event for rec, already deleted from id.
// Caller holds r.mu.
func (r *Registry) removedLocked(id string, rec *Record, reason Reason) Event {
	return Event{
		Kind:     EventRemoved,
		DeviceID: id,
		Reason:   reason,
		Remote:   remoteOf(rec),
		Online:   len(r.records),
		At:       r.now(),
	}
}

// emitLocked hands events to the observer in map-change order.
// Caller holds r.mu.
func (r *Registry) emitLocked(events []Event) {
	for _, ev := range events {
		r.observer.Observe(ev)
	}
}

func (r *Registry) logRemoval(id string, reason Reason, online int) {
	r.logger.Info("connection removed", "device_id", id, "reason", string(reason), "online", online)
}

func remoteOf(rec *Record) string {
	if rec == nil || rec.Conn() == nil {
		return ""
	}
	return rec.Conn().RemoteAddr()
}

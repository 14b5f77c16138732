package registry

import "time"

// EventKind names a registry lifecycle transition.
type EventKind string

// Lifecycle transitions reported to the Observer.
const (
	EventConnected EventKind = "connected"
	EventRenamed   EventKind = "renamed"
	EventReplaced  EventKind = "replaced"
	EventRemoved   EventKind = "removed"
)

// Reason explains why a record left the registry.
type Reason string

// Removal reasons.
const (
	ReasonClosed              Reason = "connection_closed"
	ReasonReplaced            Reason = "replaced"
	ReasonDisconnectRequested Reason = "disconnect_requested"
	ReasonHardTimeout         Reason = "hard_timeout"
	ReasonProbeUnanswered     Reason = "probe_unanswered"
	ReasonNotOpen             Reason = "transport_not_open"
	ReasonSendFailed          Reason = "send_failed"
)

// Event describes one change to the registry.
type Event struct {
	Kind     EventKind
	DeviceID string
	PrevID   string
	Reason   Reason
	Remote   string
	Online   int
	At       time.Time
}

// Observer receives registry events while the map lock is held, so events
// arrive in the order the map changed. Implementations must not block and
// must not call back into the Registry.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev Event) { f(ev) }

type noopObserver struct{}

func (noopObserver) Observe(Event) {}

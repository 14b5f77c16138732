package registry

import (
	"sync"
	"time"
)

// StatusUnknown is reported when a device has not sent a status yet.
const StatusUnknown = "unknown"

// Conn is the transport handle a Record owns.
//
// Implementations must not block: Send, Ping, Close and Terminate only
// enqueue work for the connection's writer. Once the transport leaves the
// open state Send returns ErrConnClosed.
type Conn interface {
	// Send queues v for delivery as one JSON text frame.
	Send(v any) error

	// Ping queues a protocol-level ping frame.
	Ping() error

	// Close starts a graceful close handshake.
	Close() error

	// Terminate drops the transport without a handshake.
	Terminate() error

	// IsOpen reports whether the transport is still usable.
	IsOpen() bool

	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
}

// Record is one live connection and what the hub knows about it.
type Record struct {
	conn        Conn
	connectedAt time.Time

	mu                  sync.Mutex
	id                  string
	lastSeen            time.Time
	status              string
	disconnectRequested bool
}

// Info is a point-in-time copy of a Record for listings.
type Info struct {
	DeviceID            string
	LastSeen            time.Time
	Status              string
	ConnectedAt         time.Time
	DisconnectRequested bool
	RemoteAddr          string
}

// NewRecord creates a record for conn, seen at now.
// The id is assigned when the record is installed in a Registry.
func NewRecord(conn Conn, now time.Time) *Record {
	return &Record{
		conn:        conn,
		connectedAt: now,
		lastSeen:    now,
	}
}

// Conn returns the record's transport.
func (r *Record) Conn() Conn {
	return r.conn
}

// ID returns the key the record is currently installed under.
func (r *Record) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *Record) setID(id string) {
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
}

// Touch records a liveness signal at now. lastSeen never moves backwards.
func (r *Record) Touch(now time.Time) {
	r.mu.Lock()
	if now.After(r.lastSeen) {
		r.lastSeen = now
	}
	r.mu.Unlock()
}

// LastSeen returns the time of the last liveness signal.
func (r *Record) LastSeen() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen
}

// SetStatus stores the application-reported status.
func (r *Record) SetStatus(status string) {
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()
}

// Status returns the last reported status, or StatusUnknown.
func (r *Record) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == "" {
		return StatusUnknown
	}
	return r.status
}

// RequestDisconnect marks the record for priority reaping.
func (r *Record) RequestDisconnect() {
	r.mu.Lock()
	r.disconnectRequested = true
	r.mu.Unlock()
}

// DisconnectRequested reports whether the client announced a disconnect.
func (r *Record) DisconnectRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnectRequested
}

// Info returns a copy of the record's state.
func (r *Record) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := r.status
	if status == "" {
		status = StatusUnknown
	}
	info := Info{
		DeviceID:            r.id,
		LastSeen:            r.lastSeen,
		Status:              status,
		ConnectedAt:         r.connectedAt,
		DisconnectRequested: r.disconnectRequested,
	}
	if r.conn != nil {
		info.RemoteAddr = r.conn.RemoteAddr()
	}
	return info
}

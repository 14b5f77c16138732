// Package registry holds the hub's single source of truth for "who is online":
// the mapping from a device identifier to the live connection record that
// currently owns it.
//
// # Identity
//
// A connection is installed under a provisional key taken from its URL path
// and may later be renamed to a DeviceID (exactly three ASCII digits). The
// Record carries its current key, so close handling removes the record by
// identity rather than by whatever key was captured at connect time.
//
// # Uniqueness
//
// At most one Record maps to a key at any instant. Installing or renaming
// onto an occupied key evicts the previous holder under the same write lock:
// the holder is sent a connection_replaced notice, its connection is closed,
// and its mapping is dropped before the new record is installed.
//
// # Concurrency
//
// One RWMutex guards the map; each Record has its own mutex for the fields
// the protocol handler and liveness monitor mutate. Conn implementations
// must not block, since eviction calls Send and Close while the map lock is
// held.
package registry

// Package hub terminates device WebSockets.
//
// Each upgraded connection gets a Record in the registry under a provisional
// id (the last segment of the request path) and two goroutines: a read pump
// that handles inbound frames strictly in order, and a write pump that owns
// every data write to the socket. Other components reach the device only
// through the registry.Conn the hub installs, whose methods enqueue and never
// block.
//
// Inbound frames drive a small state machine:
//
//	Connected(provisional) --register--> Registered(deviceId) --close--> Closed
//
// A close event removes the record by identity, so a connection that was
// renamed or replaced never removes a successor.
package hub

// Package protocol defines the JSON frames exchanged with devices over the
// WebSocket.
//
// Every frame is a JSON object with a "type" discriminator. Inbound frames
// decode into one concrete Message variant; a type the hub does not handle
// decodes to Unrecognised rather than an error, so the caller can ignore it
// explicitly. Only frames that are not JSON objects fail with ErrMalformed.
//
// Inbound:  ping, status, register, disconnect
// Outbound: pong, system (connection_replaced, register_success, register_rejected)
package protocol

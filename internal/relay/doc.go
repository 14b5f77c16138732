// Package relay pushes control-plane messages to connected devices.
//
// Every entry point (GET /send, POST /send, the MQTT command topic) builds a
// Request and calls Dispatcher.Send, so validation, lookup and failure
// handling are identical whichever way a message arrives.
//
// Send validates the target, looks it up in the registry, stamps the message
// with targetDevice and a fresh messageId, and enqueues it on the device's
// connection. The connection re-checks its open state under its own lock at
// enqueue time, so a message is never queued on a handle that a concurrent
// close or reap has already shut. A stale or failing connection is removed
// from the registry as a side effect. Sends are never retried.
package relay

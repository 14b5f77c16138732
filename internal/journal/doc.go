// Package journal stores the connection event history: every connect,
// rename, replacement and removal the registry reports, with its reason.
//
// The journal is append-only and queried newest first by GET /events.
package journal

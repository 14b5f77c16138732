// Package liveness reaps dead device connections.
//
// A Monitor sweeps the registry on a fixed period. Per record and sweep:
//
//  1. A transport that is no longer open is removed at once.
//  2. A record whose client asked to disconnect, or that has been silent for
//     longer than HardCloseAfter, is closed and removed. This path is final.
//  3. A record silent for longer than StaleAfter is pinged and a probe is
//     queued. When the probe falls due after PongGrace, the record is closed
//     and removed unless its lastSeen moved past the value copied at probe
//     time.
//
// Probes are plain values in a queue drained by the monitor goroutine, so a
// follow-up never compares against a lastSeen read after the probe was sent.
// Several monitors with different parameters may share one registry; the
// default configuration runs a "fast" and a "deep" instance.
package liveness
